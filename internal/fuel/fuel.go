// Package fuel models fuel properties for conventional Jet A-1 and
// sustainable aviation fuel (SAF) blends. Blend properties are linear in
// the blend percentage between the neat Jet A-1 and neat SAF values.
package fuel

import "fmt"

// Properties holds the fuel characteristics passed to the contrail model
type Properties struct {
	PctBlend        float64 `json:"pct_blend"`        // SAF fraction, percent
	QFuel           float64 `json:"q_fuel"`           // lower calorific value (J/kg)
	HydrogenContent float64 `json:"hydrogen_content"` // mass percent
	EIH2O           float64 `json:"ei_h2o"`           // kg/kg
	EISO2           float64 `json:"ei_so2"`           // kg/kg
	EISulphates     float64 `json:"ei_sulphates"`     // kg/kg
	EIOC            float64 `json:"ei_oc"`            // kg/kg
	EICO2           float64 `json:"ei_co2"`           // kg/kg
}

// JetA returns the properties of neat Jet A-1
func JetA() Properties {
	return Properties{
		PctBlend:        0,
		QFuel:           43.13e6,
		HydrogenContent: 13.8,
		EIH2O:           1.23,
		EISO2:           0.0012,
		EISulphates:     2.4e-5,
		EIOC:            2.0e-5,
		EICO2:           3.159,
	}
}

// SAF returns the properties of neat (100%) sustainable aviation fuel.
// SAF carries no sulphur, so the SO2, sulphate and organic-carbon
// emission indices vanish.
func SAF() Properties {
	return Properties{
		PctBlend:        100,
		QFuel:           44.20e6,
		HydrogenContent: 15.3,
		EIH2O:           1.38,
		EISO2:           0,
		EISulphates:     0,
		EIOC:            0,
		EICO2:           3.01,
	}
}

// Blend returns the properties of a Jet A-1 / SAF blend at the given
// percentage in [0, 100]
func Blend(pct float64) (Properties, error) {
	if pct < 0 || pct > 100 {
		return Properties{}, fmt.Errorf("fuel: blend percentage out of range: %v", pct)
	}
	a, b := JetA(), SAF()
	t := pct / 100
	return Properties{
		PctBlend:        pct,
		QFuel:           lerp(a.QFuel, b.QFuel, t),
		HydrogenContent: lerp(a.HydrogenContent, b.HydrogenContent, t),
		EIH2O:           lerp(a.EIH2O, b.EIH2O, t),
		EISO2:           lerp(a.EISO2, b.EISO2, t),
		EISulphates:     lerp(a.EISulphates, b.EISulphates, t),
		EIOC:            lerp(a.EIOC, b.EIOC, t),
		EICO2:           lerp(a.EICO2, b.EICO2, t),
	}, nil
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
