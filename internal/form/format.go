package form

import (
	"math"
	"strconv"
)

// FormatINR renders amount in rupees with Indian digit grouping and no
// fraction digits, e.g. 7500000 -> "₹75,00,000".
func FormatINR(amount float64) string {
	switch {
	case math.IsNaN(amount):
		return "₹NaN"
	case math.IsInf(amount, 1):
		return "₹∞"
	case math.IsInf(amount, -1):
		return "-₹∞"
	}
	rounded := math.Round(amount)
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	return sign + "₹" + groupIndian(strconv.FormatFloat(rounded, 'f', 0, 64))
}

// groupIndian groups the last three digits, then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	out := make([]byte, 0, len(digits)+len(digits)/2)
	lead := len(head) % 2
	if lead == 1 {
		out = append(out, head[0])
	}
	for i := lead; i < len(head); i += 2 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, head[i], head[i+1])
	}
	out = append(out, ',')
	return string(append(out, tail...))
}
