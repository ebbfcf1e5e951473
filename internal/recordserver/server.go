package recordserver

import (
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kaitodo/kaitodo/internal/remote"
)

// Server exposes the record store over HTTP and the change feed over
// websocket.
type Server struct {
	db     *DB
	hub    *Hub
	echo   *echo.Echo
	logger *log.Logger
}

// NewServer wires the HTTP API around an open record database.
// If logger is nil, a default logger writing to stderr is used.
func NewServer(db *DB, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "[server] ", log.LstdFlags)
	}

	s := &Server{
		db:     db,
		hub:    NewHub(logger),
		logger: logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.POST("/api/records/:type", s.handleCreate)
	e.GET("/api/records/id/:id", s.handleGet)
	e.PATCH("/api/records/id/:id", s.handleUpdate)
	e.DELETE("/api/records/id/:id", s.handleDelete)
	e.GET("/api/query", s.handleQuery)
	e.GET("/api/events", s.handleEvents)
	e.GET("/health", s.handleHealth)

	s.echo = e
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Printf("Record service listening on %s", addr)
	return s.echo.Start(addr)
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Stop shuts down the websocket hub.
func (s *Server) Stop() {
	s.hub.Stop()
}

func (s *Server) handleCreate(c echo.Context) error {
	recordType := c.Param("type")

	var fields remote.Fields
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid fields payload"})
	}
	if fields == nil {
		fields = remote.Fields{}
	}

	rec, err := s.db.Create(recordType, fields)
	if errors.Is(err, ErrDuplicateCode) {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	if err != nil {
		s.logger.Printf("Create failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "create failed"})
	}

	s.hub.Broadcast(Event{Action: "created", RecordType: rec.Type, RecordID: rec.ID})
	return c.JSON(http.StatusCreated, rec)
}

func (s *Server) handleGet(c echo.Context) error {
	rec, err := s.db.Get(c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "record not found"})
	}
	if err != nil {
		s.logger.Printf("Get failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "get failed"})
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleUpdate(c echo.Context) error {
	var fields remote.Fields
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid fields payload"})
	}

	rec, err := s.db.Update(c.Param("id"), fields)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "record not found"})
	}
	if err != nil {
		s.logger.Printf("Update failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "update failed"})
	}

	s.hub.Broadcast(Event{Action: "updated", RecordType: rec.Type, RecordID: rec.ID})
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDelete(c echo.Context) error {
	id := c.Param("id")

	// Type is needed for the event, so look it up before deleting.
	rec, err := s.db.Get(id)
	if errors.Is(err, ErrNotFound) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		s.logger.Printf("Delete lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}

	deleted, err := s.db.Delete(id)
	if err != nil {
		s.logger.Printf("Delete failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	if deleted {
		s.hub.Broadcast(Event{Action: "deleted", RecordType: rec.Type, RecordID: id})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleQuery(c echo.Context) error {
	recordType := c.QueryParam("type")
	field := c.QueryParam("field")
	value := c.QueryParam("value")
	if recordType == "" || field == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "type and field are required"})
	}

	records, err := s.db.Query(recordType, field, value)
	if err != nil {
		s.logger.Printf("Query failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
	}
	if records == nil {
		records = []remote.Record{}
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) handleEvents(c echo.Context) error {
	s.hub.handleSubscribe(c.Response(), c.Request())
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": s.hub.ClientCount(),
	})
}
