package refine

// RefinementPrompt is the instruction template for one refinement pass.
// Formatted with the preliminary candidate list (JSON lines) and the
// document text.
const RefinementPrompt = `
# Task Context
You are a careful reviewer of automatically extracted entities. You will be
given a document and a list of preliminary entity candidates produced by
pattern matching and statistical extraction. Your job is to validate the
candidates against the document, normalize their values, find entities the
earlier stages missed, and identify relationships between entities.

# Background Data
Preliminary candidates (one JSON object per line):
%s

Document text:
"""
%s
"""

# Detailed Task Description & Rules
- Judge every candidate in the list. A candidate is valid only if the text
  really refers to an entity of the stated type at that value.
- When a candidate is an abbreviation, ticker or partial form of a full name
  that the document makes clear (e.g. "MSFT" where the document discusses
  Microsoft Corporation), set "valid": true and put the full form in
  "normalized_value".
- Mark a candidate invalid when it is a false positive (e.g. a capitalized
  phrase that is not actually a name). Give a one-sentence "reason".
- List entities that appear in the document but not in the candidate list
  under "new_entities", with a confidence between 0 and 1.
- List relationships between entities in the document under "relationships",
  referring to entities by their value, with a strength between 0 and 1.
- Do not invent entities or relationships that the document does not support.

# Examples
A candidate {"value": "MSFT", "type": "STOCK_SYMBOL"} in a document about
Microsoft's earnings yields:
{"value": "MSFT", "type": "STOCK_SYMBOL", "valid": true, "normalized_value": "Microsoft Corporation"}

A candidate {"value": "Dear Sir", "type": "PERSON_NAME"} yields:
{"value": "Dear Sir", "type": "PERSON_NAME", "valid": false, "reason": "Salutation, not a person's name"}

# Output Formatting
Respond with exactly one fenced JSON code block and nothing else outside it:

` + "```json" + `
{
  "verdicts": [
    {"value": string, "type": string, "valid": bool, "normalized_value": string?, "reason": string?}
  ],
  "new_entities": [
    {"value": string, "type": string, "confidence": number, "description": string?}
  ],
  "relationships": [
    {"source_value": string, "target_value": string, "type": string, "strength": number, "description": string?}
  ],
  "summary": string
}
` + "```" + `
`
