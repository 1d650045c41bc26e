//go:build e2e

package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pokPayload struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	HasEmbedding bool   `json:"has_embedding"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type searchPayload struct {
	Items         []pokPayload `json:"items"`
	Page          int          `json:"page"`
	Size          int          `json:"size"`
	TotalElements int64        `json:"total_elements"`
	TotalPages    int          `json:"total_pages"`
	Approximate   bool         `json:"approximate"`
}

// TestE2E_Auth tests API token authentication over HTTP
func TestE2E_Auth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	t.Run("valid token authenticates", func(t *testing.T) {
		resp, err := env.Get("/poks/search", env.AuthToken)
		require.NoError(t, err)

		var page searchPayload
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		assert.NotNil(t, page.Items)
		assert.Equal(t, int64(0), page.TotalElements)
	})

	t.Run("missing token returns 401", func(t *testing.T) {
		_, err := env.Get("/poks/search", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("malformed token returns 401", func(t *testing.T) {
		_, err := env.Get("/poks/search", "pok_not-actually-hex")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("revoked token returns 401", func(t *testing.T) {
		var tokenID string
		err := env.Pool.QueryRow(env.Ctx,
			`SELECT id FROM api_tokens WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`,
			env.UserID,
		).Scan(&tokenID)
		require.NoError(t, err)
		require.NoError(t, env.AuthSvc.RevokeToken(env.Ctx, tokenID))

		_, err = env.Get("/poks/search", env.AuthToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

// TestE2E_PokLifecycle tests pok CRUD over HTTP
func TestE2E_PokLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	var pokID string

	t.Run("create pok", func(t *testing.T) {
		resp, err := env.Post("/poks", map[string]string{
			"title":   "Sourdough bread",
			"content": "Feed the starter twice daily.",
		}, env.AuthToken)
		require.NoError(t, err)

		var pok pokPayload
		require.NoError(t, json.Unmarshal(resp.Data, &pok))
		assert.NotEmpty(t, pok.ID)
		assert.Equal(t, "Sourdough bread", pok.Title)
		assert.False(t, pok.HasEmbedding)
		pokID = pok.ID
	})

	t.Run("embedding materializes asynchronously", func(t *testing.T) {
		env.WaitForEmbeddings()

		resp, err := env.Get("/poks/"+pokID, env.AuthToken)
		require.NoError(t, err)

		var pok pokPayload
		require.NoError(t, json.Unmarshal(resp.Data, &pok))
		assert.True(t, pok.HasEmbedding)
	})

	t.Run("update clears the embedding", func(t *testing.T) {
		resp, err := env.Put("/poks/"+pokID, map[string]string{
			"title":   "Sourdough bread",
			"content": "Switched to once-daily feeding.",
		}, env.AuthToken)
		require.NoError(t, err)

		var pok pokPayload
		require.NoError(t, json.Unmarshal(resp.Data, &pok))
		assert.Equal(t, "Switched to once-daily feeding.", pok.Content)
		assert.False(t, pok.HasEmbedding)

		env.WaitForEmbeddings()
	})

	t.Run("create without content returns 400", func(t *testing.T) {
		_, err := env.Post("/poks", map[string]string{"title": "no body"}, env.AuthToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("another user's pok is forbidden", func(t *testing.T) {
		other, err := env.AuthSvc.CreateUser(env.Ctx, "e2e-other")
		require.NoError(t, err)
		otherToken, err := env.AuthSvc.CreateToken(env.Ctx, other.ID, "other-token")
		require.NoError(t, err)

		_, err = env.Get("/poks/"+pokID, otherToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("delete pok", func(t *testing.T) {
		_, err := env.Delete("/poks/"+pokID, env.AuthToken)
		require.NoError(t, err)

		_, err = env.Get("/poks/"+pokID, env.AuthToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

// TestE2E_Search tests keyword, semantic, and hybrid search over HTTP
func TestE2E_Search(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	seed := func(title, content string) pokPayload {
		resp, err := env.Post("/poks", map[string]string{
			"title":   title,
			"content": content,
		}, env.AuthToken)
		require.NoError(t, err)
		var pok pokPayload
		require.NoError(t, json.Unmarshal(resp.Data, &pok))
		return pok
	}

	bread := seed("Sourdough bread", "Starter maintenance.")
	seed("Morning coffee", "Pour-over ratios, mentions bread pairing.")
	seed("Taxes", "Quarterly filing.")
	env.WaitForEmbeddings()

	t.Run("keyword search", func(t *testing.T) {
		resp, err := env.Get("/poks/search?q=bread&mode=keyword", env.AuthToken)
		require.NoError(t, err)

		var page searchPayload
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		assert.Equal(t, int64(2), page.TotalElements)
		assert.False(t, page.Approximate)
	})

	t.Run("semantic search ranks on-topic first", func(t *testing.T) {
		resp, err := env.Get("/poks/search?q=bread&mode=semantic", env.AuthToken)
		require.NoError(t, err)

		var page searchPayload
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		require.NotEmpty(t, page.Items)
		assert.Equal(t, bread.ID, page.Items[0].ID)
		assert.True(t, page.Approximate)
	})

	t.Run("hybrid search", func(t *testing.T) {
		resp, err := env.Get("/poks/search?q=bread&mode=hybrid", env.AuthToken)
		require.NoError(t, err)

		var page searchPayload
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		require.NotEmpty(t, page.Items)
		assert.Equal(t, bread.ID, page.Items[0].ID)
		assert.False(t, page.Approximate)
	})

	t.Run("invalid sort field returns 400", func(t *testing.T) {
		_, err := env.Get("/poks/search?sortBy=title", env.AuthToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})
}

// TestE2E_AdminBackfill tests the internal backfill endpoint
func TestE2E_AdminBackfill(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	// One pok without an embedding, seeded below the service layer.
	var missingID string
	{
		resp, err := env.Post("/poks", map[string]string{"content": "Backfill me."}, env.AuthToken)
		require.NoError(t, err)
		var pok pokPayload
		require.NoError(t, json.Unmarshal(resp.Data, &pok))
		missingID = pok.ID
		env.WaitForEmbeddings()
		_, err = env.Pool.Exec(env.Ctx, `UPDATE poks SET embedding = NULL WHERE id = $1`, missingID)
		require.NoError(t, err)
	}

	t.Run("wrong internal key returns 401", func(t *testing.T) {
		resp, err := env.PostRaw("/admin/backfill-embeddings", map[string]string{
			"X-Internal-Key": "wrong",
		})
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("backfill enqueues missing embeddings", func(t *testing.T) {
		resp, err := env.PostRaw("/admin/backfill-embeddings", map[string]string{
			"X-Internal-Key": testInternalKey,
		})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var result struct {
			Enqueued int `json:"enqueued"`
		}
		require.NoError(t, json.Unmarshal(body, &result))
		assert.Equal(t, 1, result.Enqueued)

		env.WaitForEmbeddings()

		var hasEmbedding bool
		err = env.Pool.QueryRow(env.Ctx,
			`SELECT embedding IS NOT NULL FROM poks WHERE id = $1`, missingID,
		).Scan(&hasEmbedding)
		require.NoError(t, err)
		assert.True(t, hasEmbedding)
	})
}
