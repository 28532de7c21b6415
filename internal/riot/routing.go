package riot

import "fmt"

// Platform ids map to the regional routing hosts used by account-v1 and
// match-v5.
var platformRoutes = map[string]string{
	"na1":  "americas",
	"br1":  "americas",
	"la1":  "americas",
	"la2":  "americas",
	"oc1":  "americas",
	"euw1": "europe",
	"eun1": "europe",
	"tr1":  "europe",
	"ru":   "europe",
	"kr":   "asia",
	"jp1":  "asia",
}

func regionalRoute(platform string) (string, error) {
	route, ok := platformRoutes[platform]
	if !ok {
		return "", fmt.Errorf("unknown region %q", platform)
	}
	return route, nil
}
