package extract

import (
	"regexp"

	"github.com/graphweave/graphweave/pkg/types"
)

// Core entity type identifiers. Extension packs contribute additional types
// through the extension registry.
const (
	TypeEmailAddress   = "EMAIL_ADDRESS"
	TypePhoneNumber    = "PHONE_NUMBER"
	TypePersonName     = "PERSON_NAME"
	TypeCompanyName    = "COMPANY_NAME"
	TypeMonetaryAmount = "MONETARY_AMOUNT"
	TypeDate           = "DATE"
	TypePercentage     = "PERCENTAGE"
	TypeURL            = "URL"
)

var (
	reEmail = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	rePhone = regexp.MustCompile(`\b(?:\+1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`)

	// A currency symbol with cent precision scores higher than a bare
	// symbol-prefixed number, which scores higher than a trailing
	// currency code.
	reMoneyCents  = regexp.MustCompile(`\$[\d,]+\.\d{2}\b`)
	reMoneyPlain  = regexp.MustCompile(`\$[\d,]+\b`)
	reMoneyCoded  = regexp.MustCompile(`\b[\d,]+(?:\.\d{2})?\s?(?:USD|EUR|GBP|JPY|CHF)\b`)
	rePercentage  = regexp.MustCompile(`\b\d+(?:\.\d+)?\s?%`)
	reDateNumeric = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	reDateWritten = regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`)
	reDateISO     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	reURL         = regexp.MustCompile(`\bhttps?://[^\s<>"]+`)

	rePersonName  = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z]\.?)?\s+[A-Z][a-z]+(?:-[A-Z][a-z]+)?\b`)
	reCompanyName = regexp.MustCompile(`\b[A-Z][A-Za-z&]*(?:\s+[A-Z][A-Za-z&]*)*,?\s+(?:Inc|Corp|Corporation|LLC|Ltd|GmbH|AG|Co|Group|Holdings)\.?\b`)

	rePhoneDigits = regexp.MustCompile(`\d`)
)

// CoreTypes returns the built-in entity type definitions. The slice is
// rebuilt on every call so callers may modify it freely.
func CoreTypes() []types.EntityTypeDefinition {
	return []types.EntityTypeDefinition{
		{
			TypeID:   TypeEmailAddress,
			Category: "contact",
			MatchRules: []types.MatchRule{
				{Pattern: reEmail, BaseConfidence: 0.98},
			},
			ContextKeywords: []string{"email", "contact", "reach", "mailto", "write"},
			ValidationRules: []types.ValidationRule{
				{Name: "has_at_sign", Format: regexp.MustCompile(`@`)},
			},
		},
		{
			TypeID:   TypePhoneNumber,
			Category: "contact",
			MatchRules: []types.MatchRule{
				{Pattern: rePhone, BaseConfidence: 0.9},
			},
			ContextKeywords: []string{"call", "phone", "tel", "mobile", "cell", "dial"},
			ValidationRules: []types.ValidationRule{
				{
					Name: "enough_digits",
					Predicate: func(value, context string) bool {
						return len(rePhoneDigits.FindAllString(value, -1)) >= 10
					},
				},
			},
		},
		{
			TypeID:   TypePersonName,
			Category: "agent",
			MatchRules: []types.MatchRule{
				{Pattern: rePersonName, BaseConfidence: 0.6},
			},
			ContextKeywords: []string{"mr", "ms", "mrs", "dr", "contact", "dear", "regards", "attn", "from"},
		},
		{
			TypeID:   TypeCompanyName,
			Category: "agent",
			MatchRules: []types.MatchRule{
				{Pattern: reCompanyName, BaseConfidence: 0.75},
			},
			ContextKeywords: []string{"company", "firm", "corporation", "client", "vendor", "partner"},
		},
		{
			TypeID:   TypeMonetaryAmount,
			Category: "quantity",
			MatchRules: []types.MatchRule{
				{Pattern: reMoneyCents, BaseConfidence: 0.95},
				{Pattern: reMoneyPlain, BaseConfidence: 0.85},
				{Pattern: reMoneyCoded, BaseConfidence: 0.8},
			},
			ContextKeywords: []string{"payment", "invoice", "amount", "fee", "price", "cost", "total", "transfer"},
		},
		{
			TypeID:   TypeDate,
			Category: "temporal",
			MatchRules: []types.MatchRule{
				{Pattern: reDateWritten, BaseConfidence: 0.95},
				{Pattern: reDateISO, BaseConfidence: 0.95},
				{Pattern: reDateNumeric, BaseConfidence: 0.85},
			},
			ContextKeywords: []string{"on", "by", "due", "deadline", "scheduled", "meeting", "dated"},
		},
		{
			TypeID:   TypePercentage,
			Category: "quantity",
			MatchRules: []types.MatchRule{
				{Pattern: rePercentage, BaseConfidence: 0.9},
			},
			ContextKeywords: []string{"rate", "interest", "growth", "return", "yield", "increase", "decrease"},
		},
		{
			TypeID:   TypeURL,
			Category: "contact",
			MatchRules: []types.MatchRule{
				{Pattern: reURL, BaseConfidence: 0.95},
			},
			ContextKeywords: []string{"visit", "link", "website", "see"},
		},
	}
}
