package pattern

import (
	"regexp"

	"porttariff/internal/domain"
)

type chargeRule struct {
	code     domain.ChargeType
	patterns []*regexp.Regexp
}

type currencyRule struct {
	code     string
	patterns []*regexp.Regexp
}

type unitRule struct {
	code     domain.TariffUnit
	patterns []*regexp.Regexp
}

func res(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// chargeRules is ordered; the first matching type wins.
var chargeRules = []chargeRule{
	{domain.ChargePortDues, res(`(?i)\b(port|harbou?r|vessel)\s+(dues|charges?)\b`)},
	{domain.ChargePilotage, res(`(?i)\bpilot(age|s)?\b`)},
	{domain.ChargeTowage, res(`(?i)\b(towage|towing|tugs?)\b`)},
	{domain.ChargeBerthHire, res(`(?i)\bberth(ing)?\s+(hire|dues|charges?|fees?)\b`, `(?i)\bdockage\b`)},
	{domain.ChargeMooring, res(`(?i)\b(un)?mooring\b`, `(?i)\blinesmen\b`)},
	{domain.ChargeAnchorage, res(`(?i)\banchorage\b`)},
	{domain.ChargeLightDues, res(`(?i)\blight\s*(dues|house\s+dues)\b`)},
	{domain.ChargeWharfage, res(`(?i)\bwharfage\b`)},
	{domain.ChargeCanalDues, res(`(?i)\bcanal\s+(dues|transit|tolls?)\b`)},
	{domain.ChargeAgencyFee, res(`(?i)\bagency\s+fees?\b`)},
	{domain.ChargeGarbageDisposal, res(`(?i)\b(garbage|waste)\s+(disposal|removal|collection)\b`)},
	{domain.ChargeFreshWater, res(`(?i)\bfresh\s*water\b`)},
}

// currencyRules is ordered so that specific markers (S$, US$) are tried
// before the bare dollar sign.
var currencyRules = []currencyRule{
	{"SGD", res(`(?:^|[^A-Za-z])S\$`, `\bSGD\b`, `(?i)\bsingapore\s+dollars?\b`)},
	{"USD", res(`US\$`, `\bUSD\b`, `\$`, `(?i)\bdollars?\b`)},
	{"EUR", res(`€`, `\bEUR\b`, `(?i)\beuros?\b`)},
	{"GBP", res(`£`, `\bGBP\b`, `(?i)\bpounds?\s+sterling\b`)},
	{"INR", res(`₹`, `\bINR\b`, `\bRs\.?(\s|\d|$)`, `(?i)\brupees?\b`)},
	{"AED", res(`\bAED\b`, `(?i)\bdirhams?\b`)},
	{"JPY", res(`¥`, `\bJPY\b`, `(?i)\byen\b`)},
	{"CNY", res(`\bCNY\b`, `\bRMB\b`, `(?i)\byuan\b`)},
}

// unitRules is ordered; tonnage bases come before the generic per-ton rule.
var unitRules = []unitRule{
	{domain.UnitPerGRT, res(`(?i)(\bper|/)\s*(GRT|GT|gross\s+(registered\s+)?ton(nage|s)?)\b`)},
	{domain.UnitPerNRT, res(`(?i)(\bper|/)\s*(NRT|NT|net\s+(registered\s+)?ton(nage|s)?)\b`)},
	{domain.UnitPerDay, res(`(?i)(\bper|/)\s*(day|24\s*h(ou)?rs?)\b`, `(?i)\bdaily\b`)},
	{domain.UnitPerHour, res(`(?i)(\bper|/)\s*(hour|hr)s?\b`, `(?i)\bhourly\b`)},
	{domain.UnitPerMovement, res(`(?i)(\bper|/)\s*(movement|move|call|entry|trip|shift)\b`)},
	{domain.UnitPerTon, res(`(?i)(\bper|/)\s*(metric\s+)?(ton|tonne|MT)s?\b`)},
	{domain.UnitLumpsum, res(`(?i)\blump\s*-?\s*sum\b`, `(?i)\bflat\s+(fee|rate)\b`)},
}

const number = `(\d[\d,]*(?:\.\d+)?)`

// amountPatterns are tried in priority order: currency-prefixed,
// currency-suffixed, then symbol-prefixed.
var amountPatterns = res(
	`(?:\b(?:USD|EUR|GBP|INR|SGD|AED|JPY|CNY|RMB|US\$|S\$|Rs\.?)|₹)\s*`+number,
	number+`\s*(?:\b(?:USD|EUR|GBP|INR|SGD|AED|JPY|CNY|RMB)\b|(?i:dollars?|euros?|rupees?|dirhams?|yen|yuan)\b)`,
	`[$€£¥]\s*`+number,
)

const tonnage = `(?:GRT|DWT|GT|NRT|tons?|tonnes?)\b`

var (
	boundedRange = regexp.MustCompile(`(?i)(\d[\d,]*)\s*(?:-|–|—|to)\s*(\d[\d,]*)\s*` + tonnage)
	upperBound   = regexp.MustCompile(`(?i)\b(?:up\s*to|not\s+exceeding|below|under)\s+(\d[\d,]*)\s*` + tonnage)
	lowerBound   = regexp.MustCompile(`(?i)\b(?:over|above|exceeding|more\s+than)\s+(\d[\d,]*)\s*` + tonnage)
)

var (
	conditionClause = regexp.MustCompile(`(?i)\b(?:subject\s+to|excluding|including|minimum|maximum|except)\b[^;,.()]*`)
	parenthetical   = regexp.MustCompile(`\(([^()]+)\)`)
)

type penalty struct {
	re     *regexp.Regexp
	amount float64
}

var hedgePenalties = []penalty{
	{regexp.MustCompile(`(?i)\b(approximately|approx\.?)`), 0.10},
	{regexp.MustCompile(`(?i)\bsubject\s+to\b`), 0.05},
	{regexp.MustCompile(`(?i)\bmay\s+vary\b`), 0.05},
}
