package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldNames lists the names accepted by Set, in display order.
var FieldNames = []string{"frequency", "maxNotifications", "orderThreshold", "customBody", "storeName", "customLogo"}

// Set returns a copy of s with one field replaced from its text form. Field
// names match the JSON document and are case-insensitive. For customLogo an
// empty value or "none" clears the logo.
func (s Settings) Set(field, value string) (Settings, error) {
	out := s.Clone()
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "frequency":
		out.Frequency = value
	case "maxnotifications":
		n, err := strconv.Atoi(value)
		if err != nil {
			return s, fmt.Errorf("maxNotifications: %q is not an integer", value)
		}
		out.MaxNotifications = n
	case "orderthreshold":
		f, err := strconv.ParseFloat(strings.TrimPrefix(value, "$"), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return s, fmt.Errorf("orderThreshold: %q is not a number", value)
		}
		out.OrderThreshold = f
	case "custombody":
		out.CustomBody = value
	case "storename":
		out.StoreName = value
	case "customlogo":
		if value == "" || strings.EqualFold(value, "none") {
			out.CustomLogo = nil
		} else {
			v := value
			out.CustomLogo = &v
		}
	default:
		return s, fmt.Errorf("unknown settings field %q", field)
	}
	return out, nil
}
