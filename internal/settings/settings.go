// Package settings holds the user-editable notification settings and their
// persistence.
package settings

import "strings"

// DefaultBody is the notification body used when none is configured.
const DefaultBody = "You have a new order for {items} item(s) totaling ${amount} from {store}."

// Settings is the persisted settings document.
//
// Frequency is either "<n>s" (seconds) or "<n>" (minutes); see
// scheduler.ResolveInterval.
type Settings struct {
	Frequency        string  `json:"frequency" validate:"notblank,max=16"`
	MaxNotifications int     `json:"maxNotifications" validate:"min=1,max=100"`
	OrderThreshold   float64 `json:"orderThreshold" validate:"finite,gte=0,lte=1000000"`
	CustomBody       string  `json:"customBody" validate:"max=1024"`
	StoreName        string  `json:"storeName" validate:"max=128"`
	CustomLogo       *string `json:"customLogo" validate:"omitempty,max=2048"`
}

// Defaults returns the settings used before anything was saved.
func Defaults() Settings {
	return Settings{
		Frequency:        "5",
		MaxNotifications: 10,
		OrderThreshold:   0,
		CustomBody:       DefaultBody,
		StoreName:        "Online Store",
	}
}

// Body returns the template to format. It is used as given: an empty
// template yields an empty body.
func (s Settings) Body() string { return s.CustomBody }

// Logo returns the custom logo or "" when unset.
func (s Settings) Logo() string {
	if s.CustomLogo == nil {
		return ""
	}
	return strings.TrimSpace(*s.CustomLogo)
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	cp := s
	if s.CustomLogo != nil {
		v := *s.CustomLogo
		cp.CustomLogo = &v
	}
	return cp
}
