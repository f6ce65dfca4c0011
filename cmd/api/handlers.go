package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/internal/cache"
	"github.com/clipforge/clipforge/internal/database"
	"github.com/clipforge/clipforge/internal/generator"
	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/pipeline"
	"github.com/clipforge/clipforge/pkg/models"
)

// API holds the handlers' dependencies.
type API struct {
	service  *generator.Service
	probe    *pipeline.FFmpeg
	cache    *cache.Cache // nil when Redis is unavailable
	db       *database.DB
	probeTTL time.Duration
	logger   *logging.Logger
}

// respondError maps the error taxonomy onto HTTP status codes.
func (api *API) respondError(c *gin.Context, err error) {
	switch {
	case models.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case models.IsInvalidState(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		api.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (api *API) createProject(c *gin.Context) {
	var settings models.ProjectSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := api.service.Create(c.Request.Context(), settings)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

func (api *API) getProject(c *gin.Context) {
	project, err := api.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

func (api *API) listProjects(c *gin.Context) {
	projects, err := api.service.List(c.Request.Context())
	if err != nil {
		api.respondError(c, err)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects, "count": len(projects)})
}

func (api *API) updateProject(c *gin.Context) {
	ctx := c.Request.Context()

	var patch models.ProjectPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Remember the current source so its cached probe can be dropped when
	// the patch swaps the track.
	var prevTrack string
	if api.cache != nil && patch.VideoTrackPath != nil {
		if prev, err := api.service.Get(ctx, c.Param("id")); err == nil {
			prevTrack = prev.VideoTrackPath
		}
	}

	project, err := api.service.Update(ctx, c.Param("id"), patch)
	if err != nil {
		api.respondError(c, err)
		return
	}

	if api.cache != nil && prevTrack != "" && prevTrack != project.VideoTrackPath {
		if err := api.cache.InvalidateMediaInfo(ctx, prevTrack); err != nil {
			api.logger.WithError(err).Warn("failed to invalidate probe cache")
		}
	}

	c.JSON(http.StatusOK, project)
}

func (api *API) deleteProject(c *gin.Context) {
	if err := api.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}

// processProject accepts the request as soon as the project is claimed; the
// pipeline itself runs on a worker. Completion is observed via getProject.
func (api *API) processProject(c *gin.Context) {
	ack, err := api.service.Process(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, ack)
}

func (api *API) exportProject(c *gin.Context) {
	outputPath, err := api.service.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"output_path": outputPath})
}

// getProjectInfo probes the project's video track, serving from the cache
// when the same source was probed recently.
func (api *API) getProjectInfo(c *gin.Context) {
	ctx := c.Request.Context()

	project, err := api.service.Get(ctx, c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	if api.cache != nil {
		if info, err := api.cache.GetMediaInfo(ctx, project.VideoTrackPath); err == nil && info != nil {
			c.JSON(http.StatusOK, info)
			return
		}
	}

	info, err := api.probe.Probe(ctx, project.VideoTrackPath)
	if err != nil {
		api.logger.WithProjectID(project.ID).WithError(err).Error("probe failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to probe video track"})
		return
	}

	if api.cache != nil {
		if err := api.cache.SetMediaInfo(ctx, project.VideoTrackPath, info, api.probeTTL); err != nil {
			api.logger.WithError(err).Warn("failed to cache probe result")
		}
	}

	c.JSON(http.StatusOK, info)
}

func (api *API) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	if err := api.db.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
		return
	}

	status := gin.H{"status": "healthy", "database": "ok"}
	if api.cache != nil {
		if err := api.cache.Ping(ctx); err != nil {
			status["cache"] = "unreachable"
		} else {
			status["cache"] = "ok"
		}
	}

	c.JSON(http.StatusOK, status)
}
