package domain

import "strings"

// Feature identifica una capacidad sujeta al control de uso.
type Feature string

const (
	FeatureForecast Feature = "forecast"
	FeatureInsights Feature = "insights"
	FeatureChat     Feature = "chat"
	FeatureReport   Feature = "report"
	FeatureImage    Feature = "image"
)

var restrictedFeatures = map[Feature]struct{}{
	FeatureChat:   {},
	FeatureReport: {},
	FeatureImage:  {},
}

// NormalizeFeature limpia el nombre recibido del cliente.
func NormalizeFeature(raw string) Feature {
	return Feature(strings.TrimSpace(raw))
}

// IsRestricted reporta si la feature exige un plan pago sin importar los créditos.
func (f Feature) IsRestricted() bool {
	_, ok := restrictedFeatures[f]
	return ok
}
