package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
	}{
		{query: "", want: Pagination{Page: 1, Limit: 20, Offset: 0}},
		{query: "?page=3&limit=10", want: Pagination{Page: 3, Limit: 10, Offset: 20}},
		{query: "?page=0&limit=-5", want: Pagination{Page: 1, Limit: 20, Offset: 0}},
		{query: "?page=2&limit=1000", want: Pagination{Page: 2, Limit: 100, Offset: 100}},
		{query: "?page=abc", want: Pagination{Page: 1, Limit: 20, Offset: 0}},
	}

	for _, tt := range tests {
		var got Pagination
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error {
			got = ParsePagination(c)
			return nil
		})

		_, err := app.Test(httptest.NewRequest("GET", "/"+tt.query, nil))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.query)
	}
}
