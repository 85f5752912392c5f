package routing

import "github.com/richxcame/rideplanner/pkg/models"

// Activate returns a copy of routes where only the route with id is primary.
// An unknown id leaves the flags untouched.
func Activate(routes []models.RouteInfo, id string) []models.RouteInfo {
	out := make([]models.RouteInfo, len(routes))
	copy(out, routes)

	found := false
	for _, r := range out {
		if r.ID == id {
			found = true
			break
		}
	}
	if !found {
		return out
	}

	for i := range out {
		out[i].IsPrimary = out[i].ID == id
	}
	return out
}
