// Package air converts dust sensor duty cycles into PM2.5 concentrations and
// air quality index values.
package air

import "math"

// PM2.5 particle model: spherical particles of radius 0.44um with density
// 1.65e12 ug/m3. K converts pcs/0.01cf into pcs/m3.
const (
	particleDensity = 1.65e12
	particleRadius  = 0.44e-6
	pcsPerCfToM3    = 3531.5
)

// RatioToPcs maps the low pulse occupancy (percent of the sample window)
// onto particle count per 0.01 cubic foot, using the sensor's response curve.
func RatioToPcs(ratio float64) float64 {
	return 1.1*math.Pow(ratio, 3) - 3.8*math.Pow(ratio, 2) + 520*ratio + 0.62
}

// PcsToUgm3 converts pcs/0.01cf into ug/m3.
func PcsToUgm3(pcs float64) float64 {
	volume := 4.0 / 3.0 * math.Pi * math.Pow(particleRadius, 3)
	mass := particleDensity * volume
	return pcs * pcsPerCfToM3 * mass
}

type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh int
}

// EPA PM2.5 breakpoints (24h average, ug/m3).
var pm25Breakpoints = []breakpoint{
	{0.0, 12.0, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 350.4, 301, 400},
	{350.5, 500.4, 401, 500},
}

// MaxAQI is reported for concentrations above the last breakpoint.
const MaxAQI = 500

// Ugm3ToAQI linearly interpolates the AQI inside the breakpoint band that
// contains c. Values between two bands (e.g. 12.05) belong to the lower band.
func Ugm3ToAQI(c float64) int {
	if c <= 0 {
		return 0
	}
	for i, b := range pm25Breakpoints {
		upper := b.cHigh
		if i+1 < len(pm25Breakpoints) {
			upper = pm25Breakpoints[i+1].cLow
			if c >= upper {
				continue
			}
		} else if c > upper {
			break
		}
		c = math.Min(c, b.cHigh)
		slope := float64(b.iHigh-b.iLow) / (b.cHigh - b.cLow)
		return int(slope*(c-b.cLow)) + b.iLow
	}
	return MaxAQI
}
