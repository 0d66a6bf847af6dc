// Package format provides display formatting for enrolment figures:
// Indian digit grouping and age-bucket display labels.
package format

import "strconv"

// ageLabels maps age-bucket column names to display labels. Historical
// extract vintages used the bio_/demo_ prefixed spellings.
var ageLabels = map[string]string{
	"age_0_5":        "Age 0-5",
	"age_5_17":       "Age 5-17",
	"age_18_greater": "Age 18+",
	"bio_age_5_17":   "Age 5-17",
	"bio_age_17_":    "Age 17+",
	"demo_age_5_17":  "Age 5-17",
	"demo_age_17_":   "Age 17+",
}

// GroupDigits renders n using the Indian numbering convention: the last
// three digits form one group and all preceding digits are grouped in
// pairs, e.g. 12345678 -> "1,23,45,678".
func GroupDigits(n int64) string {
	if n < 0 {
		return "-" + GroupDigits(-n)
	}
	if n < 1000 {
		return strconv.FormatInt(n, 10)
	}

	s := strconv.FormatInt(n, 10)
	result := s[len(s)-3:]
	rest, _ := strconv.ParseInt(s[:len(s)-3], 10, 64)

	for rest > 0 {
		pair := strconv.FormatInt(rest%100, 10)
		if rest >= 100 && len(pair) == 1 {
			pair = "0" + pair
		}
		result = pair + "," + result
		rest /= 100
	}

	return result
}

// AgeLabel converts an age-bucket column name to its display label.
// Unknown names pass through unchanged.
func AgeLabel(column string) string {
	if label, ok := ageLabels[column]; ok {
		return label
	}
	return column
}
