package server

import (
	_ "embed"
	"net/http"

	"botgateway/internal/core"

	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var indexPage []byte

//go:embed static/builder.html
var builderPage []byte

//go:embed static/widget.js
var widgetScript []byte

func (s *Server) handleIndexPage(c *gin.Context) {
	c.Data(http.StatusOK, core.ContentTypeHTML, indexPage)
}

func (s *Server) handleBuilderPage(c *gin.Context) {
	c.Data(http.StatusOK, core.ContentTypeHTML, builderPage)
}

func (s *Server) handleWidgetScript(c *gin.Context) {
	c.Data(http.StatusOK, core.ContentTypeJavaScript, widgetScript)
}
