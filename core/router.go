package core

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, store *sessions.CookieStore, creds *CredentialService, registry *ChallengeRegistry, engine *SubmissionEngine, attempts AttemptRepository, audit AuditLog) *gin.Engine {
	r := gin.Default()

	r.Use(OriginMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, store, creds))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/auth/register", func(c *gin.Context) {
			username, password, ok := bindCredentials(c)
			if !ok {
				return
			}

			ctx := c.Request.Context()
			userID, err := creds.Register(ctx, username, password)
			if err != nil {
				respondCoreError(c, err)
				return
			}

			token, err := creds.CreateSession(ctx, userID)
			if err != nil {
				respondCoreError(c, err)
				return
			}
			if err := saveSessionToken(c, cfg, token); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to set session")
				return
			}
			c.JSON(http.StatusOK, gin.H{"user_id": userID})
		})

		api.POST("/auth/login", func(c *gin.Context) {
			username, password, ok := bindCredentials(c)
			if !ok {
				return
			}

			ctx := c.Request.Context()
			user, err := creds.Authenticate(ctx, username, password)
			if err != nil {
				respondCoreError(c, err)
				return
			}

			token, err := creds.CreateSession(ctx, user.ID)
			if err != nil {
				respondCoreError(c, err)
				return
			}
			if err := saveSessionToken(c, cfg, token); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to set session")
				return
			}
			c.JSON(http.StatusOK, gin.H{"user_id": user.ID})
		})

		api.POST("/auth/logout", func(c *gin.Context) {
			if _, ok := requireLogin(c); !ok {
				return
			}
			if err := clearSessionToken(c, cfg); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to clear session")
				return
			}
			c.Status(http.StatusNoContent)
		})

		api.GET("/users/me", func(c *gin.Context) {
			user, ok := requireLogin(c)
			if !ok {
				return
			}

			ctx := c.Request.Context()
			list, err := attempts.ListForUser(ctx, user.ID)
			if err != nil {
				respondCoreError(c, err)
				return
			}

			solved := 0
			items := make([]gin.H, 0, len(list))
			for _, a := range list {
				name := ""
				if ch, err := registry.Get(ctx, a.TaskID); err == nil && ch != nil {
					name = ch.Name
				}
				if a.FinishAt != nil {
					solved++
				}
				items = append(items, gin.H{
					"challenge_id":   a.TaskID,
					"challenge_name": name,
					"start_at":       a.StartAt,
					"finish_at":      a.FinishAt,
				})
			}

			c.JSON(http.StatusOK, gin.H{
				"user_id":       user.ID,
				"username":      user.Username,
				"is_runner":     user.IsRunner,
				"is_admin":      user.IsAdmin,
				"solved_count":  solved,
				"attempt_count": len(list),
				"attempts":      items,
			})
		})

		api.GET("/challenges", func(c *gin.Context) {
			user, ok := requireLogin(c)
			if !ok {
				return
			}

			ctx := c.Request.Context()
			open, err := registry.ListOpen(ctx)
			if err != nil {
				respondCoreError(c, err)
				return
			}
			mine, err := attempts.ListForUser(ctx, user.ID)
			if err != nil {
				respondCoreError(c, err)
				return
			}
			byTask := map[string]AttemptRecord{}
			for _, a := range mine {
				byTask[a.TaskID] = a
			}

			items := make([]gin.H, 0, len(open))
			for _, ch := range open {
				a, started := byTask[ch.ID]
				items = append(items, gin.H{
					"id":             ch.ID,
					"name":           ch.Name,
					"category":       ch.Category,
					"author":         ch.Author,
					"is_freezed":     ch.IsFreezed,
					"has_attachment": ch.HasAttachment,
					"started":        started,
					"solved":         started && a.FinishAt != nil,
				})
			}
			c.JSON(http.StatusOK, gin.H{"challenges": items})
		})

		api.GET("/challenges/:id", func(c *gin.Context) {
			user, ok := requireLogin(c)
			if !ok {
				return
			}

			ch, attempt, err := engine.Visible(c.Request.Context(), user.ID, c.Param("id"))
			if err != nil {
				respondCoreError(c, err)
				return
			}

			resp := gin.H{
				"id":             ch.ID,
				"name":           ch.Name,
				"category":       ch.Category,
				"author":         ch.Author,
				"is_freezed":     ch.IsFreezed,
				"has_attachment": ch.HasAttachment,
				"started":        attempt != nil,
				"solved":         attempt != nil && attempt.FinishAt != nil,
			}
			// Description stays hidden until the clock runs (or global freeze).
			if MaterialsVisible(ch, attempt) {
				resp["description"] = ch.Description
			}
			if attempt != nil {
				resp["start_at"] = attempt.StartAt
				resp["finish_at"] = attempt.FinishAt
			}
			c.JSON(http.StatusOK, resp)
		})

		api.GET("/challenges/:id/attachment", func(c *gin.Context) {
			user, ok := requireLogin(c)
			if !ok {
				return
			}

			ch, attempt, err := engine.Visible(c.Request.Context(), user.ID, c.Param("id"))
			if err != nil {
				respondCoreError(c, err)
				return
			}
			if !MaterialsVisible(ch, attempt) {
				respondCoreError(c, ErrAttachmentLocked)
				return
			}
			if !ch.HasAttachment {
				respondCoreError(c, ErrNoAttachment)
				return
			}

			data, err := BuildAttachmentArchive(*ch)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to build archive")
				return
			}
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.tar.gz", archiveRootName(ch.Name)))
			c.Data(http.StatusOK, "application/gzip", data)
		})

		api.GET("/challenges/:id/solvers", func(c *gin.Context) {
			user, ok := requireLogin(c)
			if !ok {
				return
			}

			ctx := c.Request.Context()
			ch, _, err := engine.Visible(ctx, user.ID, c.Param("id"))
			if err != nil {
				respondCoreError(c, err)
				return
			}
			solvers, err := attempts.ListSolvers(ctx, ch.ID)
			if err != nil {
				respondCoreError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"solvers": solvers})
		})

		api.POST("/challenges/:id/start", func(c *gin.Context) {
			user, ok := requireLogin(c)
			if !ok {
				return
			}

			attempt, err := engine.Start(c.Request.Context(), user.ID, c.Param("id"))
			if err != nil {
				respondCoreError(c, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"start_at": attempt.StartAt})
		})

		api.POST("/challenges/:id/submit", func(c *gin.Context) {
			user, ok := requireLogin(c)
			if !ok {
				return
			}

			var req struct {
				Answer string `json:"answer"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}

			solved, err := engine.Submit(c.Request.Context(), user.ID, c.Param("id"), req.Answer)
			if err != nil {
				respondCoreError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"solved": solved})
		})

		admin := api.Group("/admin")
		admin.Use(AdminOnly())
		{
			setFlag := func(action func(c *gin.Context, id string) error) gin.HandlerFunc {
				return func(c *gin.Context) {
					if err := action(c, c.Param("id")); err != nil {
						respondCoreError(c, err)
						return
					}
					c.Status(http.StatusNoContent)
				}
			}

			admin.POST("/challenges/:id/open", setFlag(func(c *gin.Context, id string) error {
				return registry.SetOpen(c.Request.Context(), id, true)
			}))
			admin.POST("/challenges/:id/close", setFlag(func(c *gin.Context, id string) error {
				return registry.SetOpen(c.Request.Context(), id, false)
			}))
			admin.POST("/challenges/:id/freeze", setFlag(func(c *gin.Context, id string) error {
				return registry.SetFreezed(c.Request.Context(), id, true)
			}))
			admin.POST("/challenges/:id/unfreeze", setFlag(func(c *gin.Context, id string) error {
				return registry.SetFreezed(c.Request.Context(), id, false)
			}))

			admin.GET("/challenges", func(c *gin.Context) {
				list, err := registry.AdminList(c.Request.Context())
				if err != nil {
					respondCoreError(c, err)
					return
				}
				items := make([]gin.H, 0, len(list))
				for _, ch := range list {
					// Metadata only; the answer never leaves the process.
					items = append(items, gin.H{
						"id":             ch.ID,
						"name":           ch.Name,
						"category":       ch.Category,
						"author":         ch.Author,
						"is_open":        ch.IsOpen,
						"is_freezed":     ch.IsFreezed,
						"has_attachment": ch.HasAttachment,
					})
				}
				c.JSON(http.StatusOK, gin.H{"challenges": items})
			})

			admin.GET("/audit", func(c *gin.Context) {
				limit := 100
				if v := strings.TrimSpace(c.Query("limit")); v != "" {
					n, err := strconv.Atoi(v)
					if err != nil || n <= 0 {
						respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
						return
					}
					limit = n
				}
				entries, err := audit.Recent(c.Request.Context(), limit)
				if err != nil {
					respondCoreError(c, err)
					return
				}
				c.JSON(http.StatusOK, gin.H{"entries": entries})
			})
		}
	}

	return r
}

// bindCredentials parses and validates the shared login/register payload.
func bindCredentials(c *gin.Context) (username, password string, ok bool) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
		return "", "", false
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required")
		return "", "", false
	}
	return req.Username, req.Password, true
}
