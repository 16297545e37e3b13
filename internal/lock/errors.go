package lock

import "strings"

var lockerErrors = map[string]string{
	"TF":                           "Transfer failed: the fee could not be transferred. Make sure the wallet holds enough native currency to cover it.",
	"FLAT FEE":                     "Incorrect fee amount. The locker requires the exact flat fee.",
	"DATE PASSED":                  "The unlock date has already passed. Choose a future date.",
	"COUNTRY":                      "Invalid country code.",
	"INVALID NFT POSITION MANAGER": "The NFT position manager is not whitelisted by the locker.",
	"OWNER CANNOT = address(0)":    "Owner address cannot be the zero address.",
	"COLLECT_ADDR":                 "Collect address cannot be the zero address.",
	"MILLISECONDS":                 "Invalid unlock date: the timestamp must be in seconds.",
	"NOT FOUND":                    "Fee structure not found: the fee name is invalid.",
}

// ErrorCode extracts the locker error code: the text after the last ':' trimmed.
func ErrorCode(reason string) string {
	if idx := strings.LastIndex(reason, ":"); idx >= 0 {
		reason = reason[idx+1:]
	}
	return strings.TrimSpace(reason)
}

// TranslateError maps a revert reason to a human-readable message. Unknown codes render as "Error: <code>".
func TranslateError(reason string) string {
	code := ErrorCode(reason)
	if msg, ok := lockerErrors[code]; ok {
		return msg
	}
	return "Error: " + code
}
