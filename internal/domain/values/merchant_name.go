package values

// maskToken replaces the hidden tail of a merchant name.
const maskToken = "**"

// MaskMerchantName masks a merchant name for interbank reporting.
// Names of two characters or fewer are returned as-is; names up to four
// characters keep the first two, longer names keep the first three.
// Operates on runes so multi-byte merchant names mask correctly.
func MaskMerchantName(name string) string {
	runes := []rune(name)
	if len(runes) <= 2 {
		return name
	}
	if len(runes) <= 4 {
		return string(runes[:2]) + maskToken
	}
	return string(runes[:3]) + maskToken
}
