package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"redirect-mgmt-go/pkg/models"
	"redirect-mgmt-go/pkg/services"
	"redirect-mgmt-go/pkg/store"

	"github.com/gin-gonic/gin"
)

// Provider error texts. The client matches on AliasNotAvailable.
const (
	AliasNotAvailable = "Alias is not available."
	AliasNotFound     = "Alias does not exist."
	URLInvalid        = "The url field must be a valid URL."
	DomainInvalid     = "Domain is not valid."
)

func respondErrors(c *gin.Context, status int, msgs ...string) {
	c.JSON(status, models.ProviderResponse{Errors: msgs})
}

// CreateLink handles POST /create.
func CreateLink(service *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LinkCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErrors(c, http.StatusUnprocessableEntity, err.Error())
			return
		}

		link, err := service.CreateLink(c.Request.Context(), req)
		switch {
		case errors.Is(err, store.ErrAliasTaken):
			respondErrors(c, http.StatusUnprocessableEntity, AliasNotAvailable)
			return
		case errors.Is(err, services.ErrInvalidURL):
			respondErrors(c, http.StatusUnprocessableEntity, URLInvalid)
			return
		case err != nil:
			respondErrors(c, http.StatusInternalServerError, err.Error())
			return
		}

		c.JSON(http.StatusOK, models.ProviderResponse{Data: link.Data()})
	}
}

// ChangeLink handles PATCH /change.
func ChangeLink(service *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LinkChange
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErrors(c, http.StatusUnprocessableEntity, err.Error())
			return
		}

		link, err := service.ChangeLink(c.Request.Context(), req)
		switch {
		case errors.Is(err, store.ErrNotFound):
			respondErrors(c, http.StatusNotFound, AliasNotFound)
			return
		case errors.Is(err, services.ErrWrongDomain):
			respondErrors(c, http.StatusUnprocessableEntity, DomainInvalid)
			return
		case errors.Is(err, services.ErrInvalidURL):
			respondErrors(c, http.StatusUnprocessableEntity, URLInvalid)
			return
		case err != nil:
			respondErrors(c, http.StatusInternalServerError, err.Error())
			return
		}

		c.JSON(http.StatusOK, models.ProviderResponse{Data: link.Data()})
	}
}

var previewPage = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head><title>Preview</title></head>
<body>
<h1>You are about to leave {{.Domain}}</h1>
<p>This link goes to <a href="{{.URL}}">{{.URL}}</a>.</p>
</body>
</html>
`))

// Redirect handles GET /:alias. Aliases flagged for preview get an
// interstitial page served from the short domain instead of a redirect.
func Redirect(service *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		link, err := service.Resolve(c.Request.Context(), c.Param("alias"))
		if errors.Is(err, store.ErrNotFound) {
			c.String(http.StatusNotFound, "Not Found")
			return
		}
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}

		if link.Preview {
			c.Header("Content-Type", "text/html; charset=utf-8")
			c.Status(http.StatusOK)
			if err := previewPage.Execute(c.Writer, link); err != nil {
				_ = c.Error(err)
			}
			return
		}
		c.Redirect(http.StatusFound, link.URL)
	}
}

// SetPreview handles POST and DELETE /admin/preview/:alias.
func SetPreview(service *services.LinkService, on bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		link, err := service.SetPreview(c.Request.Context(), c.Param("alias"), on)
		if errors.Is(err, store.ErrNotFound) {
			respondErrors(c, http.StatusNotFound, AliasNotFound)
			return
		}
		if err != nil {
			respondErrors(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"alias": link.Alias, "preview": link.Preview})
	}
}

// HealthCheck handles GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
