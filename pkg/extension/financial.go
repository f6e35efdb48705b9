package extension

import (
	"regexp"

	"github.com/graphweave/graphweave/pkg/types"
)

// Financial entity type identifiers.
const (
	TypeStockSymbol          = "STOCK_SYMBOL"
	TypeFinancialInstitution = "FINANCIAL_INSTITUTION"
	TypeFinancialInstrument  = "FINANCIAL_INSTRUMENT"
	TypeJobTitle             = "JOB_TITLE"
)

var (
	// Exchange-qualified tickers are near-certain; a bare short uppercase
	// token is far too noisy to match on its own.
	reTickerExchange = regexp.MustCompile(`\((?:NYSE|NASDAQ|AMEX|LSE):\s*([A-Z]{1,5})\)`)
	reTickerPrefixed = regexp.MustCompile(`\b(?:ticker|symbol):?\s+([A-Z]{1,5})\b`)

	reFinInstitution = regexp.MustCompile(`\b[A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)?\s+(?:Bank|Capital|Securities|Investments|Asset\s+Management|Financial(?:\s+(?:Group|Services))?)\b`)
	reFinInstrument  = regexp.MustCompile(`\b(?:[A-Z][A-Za-z]+\s+)?(?:bonds?|shares?|stock\s+options?|futures|ETFs?|mutual\s+funds?|treasury\s+(?:bills?|notes?))\b`)
	reJobTitle       = regexp.MustCompile(`\b(?:CEO|CFO|CTO|COO|CIO|(?:Vice\s+)?President|Chairman|Managing\s+Director|Portfolio\s+Manager|(?:Senior\s+|Chief\s+)?(?:Financial\s+)?Analyst)\b`)
)

// FinancialPack returns the built-in financial entity types: exchange-listed
// stock symbols, institutions, instruments and job titles commonly found in
// business correspondence.
func FinancialPack() Pack {
	return Pack{
		Name: "financial",
		Types: []types.EntityTypeDefinition{
			{
				TypeID:   TypeStockSymbol,
				Category: "financial",
				MatchRules: []types.MatchRule{
					{Pattern: reTickerExchange, Group: 1, BaseConfidence: 0.95},
					{Pattern: reTickerPrefixed, Group: 1, BaseConfidence: 0.8},
				},
				ContextKeywords: []string{"stock", "shares", "trading", "listed", "exchange", "ticker"},
			},
			{
				TypeID:   TypeFinancialInstitution,
				Category: "financial",
				MatchRules: []types.MatchRule{
					{Pattern: reFinInstitution, BaseConfidence: 0.8},
				},
				ContextKeywords: []string{"account", "loan", "deposit", "lender", "wire", "transfer"},
			},
			{
				TypeID:   TypeFinancialInstrument,
				Category: "financial",
				MatchRules: []types.MatchRule{
					{Pattern: reFinInstrument, BaseConfidence: 0.65},
				},
				ContextKeywords: []string{"portfolio", "invest", "yield", "maturity", "holding"},
			},
			{
				TypeID:   TypeJobTitle,
				Category: "financial",
				MatchRules: []types.MatchRule{
					{Pattern: reJobTitle, BaseConfidence: 0.75},
				},
				ContextKeywords: []string{"appointed", "promoted", "serves", "role", "position"},
			},
		},
		Categories: map[string]types.KnowledgeCategory{
			TypeStockSymbol:          types.CategoryAbstract,
			TypeFinancialInstitution: types.CategoryAgent,
			TypeFinancialInstrument:  types.CategoryObject,
			TypeJobTitle:             types.CategoryQuality,
		},
	}
}
