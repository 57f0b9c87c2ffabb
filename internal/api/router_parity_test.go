// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/oapi-codegen/v2/pkg/codegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pathParam = regexp.MustCompile(`\{[^}]+\}`)

// Every documented operation must be mounted on the router.
func TestRouterParity(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	env := newTestEnv(t)

	routes, ok := env.handler.(chi.Routes)
	require.True(t, ok, "handler is not a chi router")

	seen := map[string]bool{}
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			if op == nil || op.OperationID == "" {
				continue
			}
			name := codegen.ToCamelCase(op.OperationID)
			assert.False(t, seen[name], "duplicate operation id %s", op.OperationID)
			seen[name] = true

			concrete := pathParam.ReplaceAllString(path, "a.mp4")
			t.Run(name, func(t *testing.T) {
				assert.True(t, routes.Match(chi.NewRouteContext(), method, concrete),
					"%s %s is documented but not routed", method, path)
			})
		}
	}
	assert.NotEmpty(t, seen)
}

func TestRouterRejectsUndocumentedMethod(t *testing.T) {
	env := newTestEnv(t)
	routes := env.handler.(chi.Routes)
	assert.False(t, routes.Match(chi.NewRouteContext(), http.MethodPut, "/admin/api/videos/a.mp4"))
}
