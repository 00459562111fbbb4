package guard

import (
	"strings"

	"github.com/ecoai-civic/ecoai-client/internal/domain"
)

// Route is a client view and what it takes to render it.
type Route struct {
	Path        string
	View        string
	Requirement domain.Requirement
}

// Routes is the client's route table.
var Routes = []Route{
	{Path: "/", View: "home", Requirement: domain.Public},
	{Path: "/login", View: "login", Requirement: domain.Public},
	{Path: "/signup", View: "signup", Requirement: domain.Public},
	{Path: "/staff-login", View: "staff-login", Requirement: domain.Public},

	{Path: "/report-waste", View: "report-waste", Requirement: domain.Authenticated},
	{Path: "/report-food", View: "report-food", Requirement: domain.Authenticated},
	{Path: "/live-map", View: "live-map", Requirement: domain.Authenticated},
	{Path: "/chatbot", View: "chatbot", Requirement: domain.Authenticated},

	{Path: "/staff/dashboard", View: "staff-dashboard", Requirement: domain.StaffOnly},
	{Path: "/staff/report/:id", View: "staff-report-detail", Requirement: domain.StaffOnly},
}

// Match finds the route for a concrete path and extracts its parameters.
func Match(routes []Route, path string) (Route, map[string]string, bool) {
	want := split(path)
	for _, route := range routes {
		pattern := split(route.Path)
		if len(pattern) != len(want) {
			continue
		}
		params := map[string]string{}
		matched := true
		for i, seg := range pattern {
			if strings.HasPrefix(seg, ":") {
				if want[i] == "" {
					matched = false
					break
				}
				params[seg[1:]] = want[i]
				continue
			}
			if seg != want[i] {
				matched = false
				break
			}
		}
		if matched {
			return route, params, true
		}
	}
	return Route{}, nil, false
}

func split(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
