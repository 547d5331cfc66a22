package structuring

import "strings"

const promptHeader = `You are extracting port tariff line items from a port authority tariff document.

Return ONLY a JSON array. Each element describes one charge and has these fields:
  "chargeType"   one of: port_dues, pilotage, towage, berth_hire, mooring, anchorage,
                 light_dues, wharfage, canal_dues, agency_fee, garbage_disposal, fresh_water, other
  "chargeName"   the charge name as written in the document
  "amount"       a positive JSON number, without currency symbols or thousands separators
  "currency"     ISO-4217 code (USD, EUR, GBP, INR, SGD, AED, JPY, CNY)
  "unit"         one of: per_grt, per_nrt, per_day, per_hour, per_movement, per_ton, lumpsum
  "sizeRangeMin" optional integer lower vessel size bound
  "sizeRangeMax" optional integer upper vessel size bound
  "conditions"   array of strings, possibly empty
  "sourceText"   the exact line of the document the charge was read from, copied verbatim

Do not invent charges. Skip lines that are not charges. If nothing qualifies, return [].

Example input:
Port Dues: $0.50 per GRT
Pilotage (Inward): $2,500 per service
Towage for vessels up to 50,000 GRT: USD 1,200 per movement

Example output:
[
  {"chargeType":"port_dues","chargeName":"Port Dues","amount":0.50,"currency":"USD","unit":"per_grt","conditions":[],"sourceText":"Port Dues: $0.50 per GRT"},
  {"chargeType":"pilotage","chargeName":"Pilotage (Inward)","amount":2500,"currency":"USD","unit":"lumpsum","conditions":["Inward"],"sourceText":"Pilotage (Inward): $2,500 per service"},
  {"chargeType":"towage","chargeName":"Towage","amount":1200,"currency":"USD","unit":"per_movement","sizeRangeMax":50000,"conditions":[],"sourceText":"Towage for vessels up to 50,000 GRT: USD 1,200 per movement"}
]

Example input:
Harbour dues (foreign vessels) Rs. 12.50 per NRT, subject to a minimum of Rs. 5,000

Example output:
[
  {"chargeType":"port_dues","chargeName":"Harbour dues","amount":12.50,"currency":"INR","unit":"per_nrt","conditions":["foreign vessels","subject to a minimum of Rs. 5,000"],"sourceText":"Harbour dues (foreign vessels) Rs. 12.50 per NRT, subject to a minimum of Rs. 5,000"}
]

Document:
"""
`

// BuildPrompt embeds the document text after the schema and few-shot examples.
func BuildPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(promptHeader) + len(text) + 8)
	b.WriteString(promptHeader)
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n")
	return b.String()
}
