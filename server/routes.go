package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hipabi/hdrparse/abi"
	"github.com/hipabi/hdrparse/api"
	"github.com/hipabi/hdrparse/ast"
	"github.com/hipabi/hdrparse/emit"
	"github.com/hipabi/hdrparse/envconfig"
	"github.com/hipabi/hdrparse/parser"
	"github.com/hipabi/hdrparse/version"
)

const requestIDHeader = "X-Request-Id"

type Server struct {
	addr net.Addr
}

func requestIDMiddleware(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set("request_id", id)
	c.Header(requestIDHeader, id)
	c.Next()
}

func maxBodyMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// allowedOrigins drops origins the cors middleware would refuse to start with.
func allowedOrigins(origins []string) []string {
	var allowed []string
	for _, o := range origins {
		switch {
		case strings.Contains(o, "*"),
			strings.HasPrefix(o, "http://"),
			strings.HasPrefix(o, "https://"),
			strings.HasPrefix(o, "chrome-extension://"),
			strings.HasPrefix(o, "moz-extension://"),
			strings.HasPrefix(o, "safari-extension://"),
			strings.HasPrefix(o, "ms-browser-extension://"):
			allowed = append(allowed, o)
		default:
			slog.Warn("ignoring origin with unsupported scheme", "origin", o)
		}
	}
	return allowed
}

func (s *Server) GenerateRoutes() http.Handler {
	config := cors.DefaultConfig()
	config.AllowWildcard = true
	config.AllowBrowserExtensions = true
	config.AllowHeaders = []string{"Content-Type", "User-Agent", "Accept", "X-Requested-With", requestIDHeader}
	config.ExposeHeaders = []string{requestIDHeader}
	config.AllowOrigins = allowedOrigins(envconfig.AllowOrigins)

	r := gin.Default()
	r.Use(
		cors.New(config),
		requestIDMiddleware,
		maxBodyMiddleware(envconfig.MaxBodySize),
	)

	r.POST("/api/parse", s.ParseHandler)
	r.POST("/api/check", s.CheckHandler)
	r.GET("/api/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version})
	})

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		r.Handle(method, "/", func(c *gin.Context) {
			c.String(http.StatusOK, "hdrparse is running")
		})
	}

	return r
}

// bindError writes the response for a request body that could not be read.
func bindError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)})
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func parseRequest(req *api.ParseRequest) (*ast.TranslationUnit, *abi.Table, error) {
	name := req.Name
	if name == "" {
		name = "<source>"
	}

	defines := make(map[string]string, len(envconfig.Defines)+len(req.Defines))
	for k, v := range envconfig.Defines {
		defines[k] = v
	}
	for k, v := range req.Defines {
		defines[k] = v
	}

	tu, err := parser.Parse(name, strings.NewReader(req.Source), parser.Options{
		Defines: defines,
		Lenient: req.Lenient || envconfig.Lenient,
	})
	if err != nil {
		return nil, nil, err
	}

	table, err := abi.Collect(tu)
	if err != nil {
		return nil, nil, err
	}
	return tu, table, nil
}

func (s *Server) ParseHandler(c *gin.Context) {
	var req api.ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	name := req.Format
	if name == "" {
		name = envconfig.Format
	}
	format, err := emit.ParseFormat(name)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if format.Binary() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("format %s is not supported by the server", format)})
		return
	}

	tu, table, err := parseRequest(&req)
	if err != nil {
		slog.Debug("parse failed", "request_id", c.GetString("request_id"), "error", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := emit.Marshal(format, tu)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, api.ParseResponse{
		Name:        tu.Name,
		Format:      format.String(),
		Document:    string(doc),
		Includes:    tu.Includes,
		Fingerprint: abi.Fingerprint(table),
	})
}

func (s *Server) CheckHandler(c *gin.Context) {
	var req api.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	_, before, err := parseRequest(&req.Old)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("old: %v", err)})
		return
	}

	_, after, err := parseRequest(&req.New)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("new: %v", err)})
		return
	}

	changes := abi.Diff(before, after)
	if changes == nil {
		changes = []abi.Change{}
	}

	c.JSON(http.StatusOK, api.CheckResponse{
		Compatible:     abi.Compatible(changes),
		Changes:        changes,
		OldFingerprint: abi.Fingerprint(before),
		NewFingerprint: abi.Fingerprint(after),
	})
}

// Serve handles requests on ln until it is closed.
func Serve(ln net.Listener) error {
	if !envconfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{addr: ln.Addr()}
	srvr := &http.Server{
		Handler: s.GenerateRoutes(),
	}

	slog.Info("Listening on " + s.addr.String() + " (version " + version.Version + ")")

	err := srvr.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
