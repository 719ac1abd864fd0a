// Package careers holds the recruiting catalog shared by the public form and
// the admin panel.
package careers

// Area-of-interest keys, matching the firm's practice areas. The public form
// submits the key; the admin panel displays the mapped label.
var areaLabels = map[string]string{
	"civil":      "Civil Law",
	"criminal":   "Criminal Law",
	"contracts":  "Contracts",
	"consulting": "Legal Consulting",
	"consumer":   "Consumer Law",
	"banking":    "Banking Law",
	"labor":      "Labor Law",
}

// AreaKeys lists the accepted area-of-interest keys in display order.
var AreaKeys = []string{
	"civil", "criminal", "contracts", "consulting", "consumer", "banking", "labor",
}

// AreaLabel maps an area key to its display label. Unknown keys are returned
// unchanged so legacy records still render.
func AreaLabel(key string) string {
	if label, ok := areaLabels[key]; ok {
		return label
	}
	return key
}

// ValidArea reports whether key is a known area of interest.
func ValidArea(key string) bool {
	_, ok := areaLabels[key]
	return ok
}
