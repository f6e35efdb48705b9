package extension

import (
	"regexp"

	"github.com/graphweave/graphweave/pkg/types"
)

// Legal entity type identifiers.
const (
	TypeContractRef = "CONTRACT_REF"
	TypeStatuteRef  = "STATUTE_REF"
)

var (
	reContractRef = regexp.MustCompile(`\b(?:Agreement|Contract|Purchase\s+Order|PO)\s+(?:No\.?|Number|#)\s*([A-Z0-9][A-Z0-9/-]*)`)
	reStatuteRef  = regexp.MustCompile(`\b\d+\s+U\.S\.C\.\s+§{1,2}\s*\d+[a-z]*(?:\([a-z0-9]+\))*|\bSection\s+\d+(?:\.\d+)*\s+of\s+the\s+[A-Z][A-Za-z\s]+Act\b`)
)

// LegalPack returns the built-in legal reference types: contract numbers and
// statute citations.
func LegalPack() Pack {
	return Pack{
		Name: "legal",
		Types: []types.EntityTypeDefinition{
			{
				TypeID:   TypeContractRef,
				Category: "legal",
				MatchRules: []types.MatchRule{
					{Pattern: reContractRef, Group: 1, BaseConfidence: 0.85},
				},
				ContextKeywords: []string{"executed", "signed", "party", "pursuant", "amendment"},
			},
			{
				TypeID:   TypeStatuteRef,
				Category: "legal",
				MatchRules: []types.MatchRule{
					{Pattern: reStatuteRef, BaseConfidence: 0.9},
				},
				ContextKeywords: []string{"pursuant", "compliance", "violation", "under", "required"},
			},
		},
		Categories: map[string]types.KnowledgeCategory{
			TypeContractRef: types.CategoryInformation,
			TypeStatuteRef:  types.CategoryInformation,
		},
	}
}
