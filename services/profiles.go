package services

import "boligscore/models"

// ProfileStandard is the equal-weight baseline profile.
const ProfileStandard = "Standard (equal weights)"

// Profile is a named, complete weight vector representing a buyer persona.
type Profile struct {
	Name    string
	Weights models.Weights
}

// DefaultWeights returns the equal-weight vector, 12.5% per component.
func DefaultWeights() models.Weights {
	w := make(models.Weights, len(models.Components))
	for _, c := range models.Components {
		w[c] = 100.0 / float64(len(models.Components))
	}
	return w
}

// DefaultProfiles returns fresh copies of the built-in presets.
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: ProfileStandard, Weights: DefaultWeights()},
		{Name: "Family", Weights: models.Weights{
			models.ComponentHouseSize:       20,
			models.ComponentLotSize:         20,
			models.ComponentBuildYear:       15,
			models.ComponentEnergy:          15,
			models.ComponentBasementSize:    10,
			models.ComponentTransitDistance: 10,
			models.ComponentPriceEfficiency: 5,
			models.ComponentDaysOnMarket:    5,
		}},
		{Name: "Investment", Weights: models.Weights{
			models.ComponentPriceEfficiency: 25,
			models.ComponentDaysOnMarket:    20,
			models.ComponentTransitDistance: 15,
			models.ComponentEnergy:          15,
			models.ComponentHouseSize:       10,
			models.ComponentBuildYear:       10,
			models.ComponentLotSize:         3,
			models.ComponentBasementSize:    2,
		}},
		{Name: "First-time buyer", Weights: models.Weights{
			models.ComponentPriceEfficiency: 30,
			models.ComponentEnergy:          20,
			models.ComponentTransitDistance: 15,
			models.ComponentHouseSize:       15,
			models.ComponentBuildYear:       10,
			models.ComponentDaysOnMarket:    5,
			models.ComponentLotSize:         3,
			models.ComponentBasementSize:    2,
		}},
		{Name: "Retiree", Weights: models.Weights{
			models.ComponentEnergy:          25,
			models.ComponentTransitDistance: 20,
			models.ComponentBuildYear:       15,
			models.ComponentHouseSize:       15,
			models.ComponentPriceEfficiency: 10,
			models.ComponentDaysOnMarket:    10,
			models.ComponentLotSize:         3,
			models.ComponentBasementSize:    2,
		}},
		{Name: "Eco-conscious", Weights: models.Weights{
			models.ComponentEnergy:          35,
			models.ComponentTransitDistance: 25,
			models.ComponentBuildYear:       15,
			models.ComponentPriceEfficiency: 10,
			models.ComponentHouseSize:       8,
			models.ComponentDaysOnMarket:    4,
			models.ComponentLotSize:         2,
			models.ComponentBasementSize:    1,
		}},
	}
}
