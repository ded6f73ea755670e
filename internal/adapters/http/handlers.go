package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jobrunner/mapview/internal/application"
	"github.com/jobrunner/mapview/internal/domain"
)

const maxBodyBytes = 1 << 20

// envelopeJSON is the wire form of a world envelope.
type envelopeJSON struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
	SRID int     `json:"srid,omitempty"`
}

func (e *envelopeJSON) toDomain() *domain.Envelope {
	if e == nil {
		return nil
	}
	env := domain.NewEnvelope(e.MinX, e.MinY, e.MaxX, e.MaxY, e.SRID)
	return &env
}

// screenJSON is the wire form of a screen rectangle.
type screenJSON struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r *screenJSON) toDomain() *domain.ScreenRect {
	if r == nil {
		return nil
	}
	rect := domain.NewScreenRect(r.X, r.Y, r.Width, r.Height)
	return &rect
}

// transformJSON is the wire form of an affine transform.
type transformJSON struct {
	ScaleX     float64 `json:"scale_x"`
	ShearY     float64 `json:"shear_y"`
	ShearX     float64 `json:"shear_x"`
	ScaleY     float64 `json:"scale_y"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

// CreateViewportRequest is the body of POST /viewports.
type CreateViewportRequest struct {
	Name   string        `json:"name"`
	Screen *screenJSON   `json:"screen,omitempty"`
	Bounds *envelopeJSON `json:"bounds,omitempty"`
}

// CRSRequest is the body of PUT /viewports/{id}/crs.
type CRSRequest struct {
	SRID   int  `json:"srid"`
	Strict bool `json:"strict"`
}

// FitRequest is the body of POST /viewports/{id}/fit.
type FitRequest struct {
	PackageID string `json:"package_id"`
	Layer     string `json:"layer"`
}

// handleCreateViewport creates a viewport session.
func (s *Server) handleCreateViewport(w http.ResponseWriter, r *http.Request) {
	var req CreateViewportRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.sessions.Create(r.Context(), req.Name, req.Bounds.toDomain())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if req.Screen != nil {
		if err := session.Viewport.SetScreenArea(req.Screen.toDomain()); err != nil {
			_ = s.sessions.Delete(r.Context(), session.ID)
			s.handleDomainError(w, err)
			return
		}
	}

	w.Header().Set("Location", "/api/v1/viewports/"+session.ID)
	s.writeJSON(w, http.StatusCreated, formatSession(session))
}

// handleListViewports returns all sessions.
func (s *Server) handleListViewports(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.List(r.Context())

	response := make([]map[string]interface{}, len(sessions))
	for i, session := range sessions {
		response[i] = formatSession(session)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"viewports": response,
		"count":     len(sessions),
	})
}

// handleGetViewport returns a single session.
func (s *Server) handleGetViewport(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, formatSession(session))
}

// handleDeleteViewport removes a session.
func (s *Server) handleDeleteViewport(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetScreen replaces the screen area. A JSON null clears it.
func (s *Server) handleSetScreen(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req *screenJSON
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := session.Viewport.SetScreenArea(req.toDomain()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, formatSession(session))
}

// handleSetBounds replaces the world bounds. A JSON null clears them.
func (s *Server) handleSetBounds(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req *envelopeJSON
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := session.Viewport.SetBounds(req.toDomain()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, formatSession(session))
}

// handleSetCRS switches the reference system. Unless strict is set a
// failed reprojection leaves the viewport unchanged and still answers 200.
func (s *Server) handleSetCRS(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req CRSRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SRID <= 0 {
		s.writeError(w, http.StatusBadRequest, "srid must be positive")
		return
	}

	if req.Strict {
		if err := session.Viewport.ChangeCoordinateReferenceSystem(r.Context(), req.SRID); err != nil {
			s.handleDomainError(w, err)
			return
		}
	} else {
		session.Viewport.SetCoordinateReferenceSystem(r.Context(), req.SRID)
	}
	s.writeJSON(w, http.StatusOK, formatSession(session))
}

// handleApplyTransform maps the bounds through an affine transform.
func (s *Server) handleApplyTransform(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req transformJSON
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session.Viewport.ApplyTransform(domain.NewTransform(
		req.ScaleX, req.ShearY, req.ShearX, req.ScaleY, req.TranslateX, req.TranslateY,
	))
	s.writeJSON(w, http.StatusOK, formatSession(session))
}

// handleListEvents returns the recent change events of a session.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	events := session.Events()
	response := make([]map[string]interface{}, len(events))
	for i, e := range events {
		response[i] = map[string]interface{}{
			"type": e.Type,
			"old":  formatEnvelope(e.Old),
			"new":  formatEnvelope(e.New),
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"viewport_id": session.ID,
		"events":      response,
		"count":       len(events),
	})
}

// handleConvertPoint converts a position between screen and world space.
// from=screen (default) maps x/y to world coordinates, from=world the
// other way round.
func (s *Server) handleConvertPoint(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	x, err := parseFloat(q.Get("x"), "x")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	y, err := parseFloat(q.Get("y"), "y")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vp := session.Viewport
	switch q.Get("from") {
	case "", "screen":
		c := vp.ScreenToWorldPoint(x, y)
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"screen": map[string]float64{"x": x, "y": y},
			"world":  map[string]interface{}{"x": c.X, "y": c.Y, "srid": c.SRID},
		})
	case "world":
		c := domain.NewCoordinate(x, y, vp.CoordinateReferenceSystem())
		sx, sy := vp.WorldToScreenPoint(c)
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"screen": map[string]float64{"x": sx, "y": sy},
			"world":  map[string]interface{}{"x": c.X, "y": c.Y, "srid": c.SRID},
		})
	default:
		s.writeError(w, http.StatusBadRequest, "from must be screen or world")
	}
}

// handleFitToLayer sets the viewport bounds to the extent of a layer.
func (s *Server) handleFitToLayer(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req FitRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PackageID == "" || req.Layer == "" {
		s.writeError(w, http.StatusBadRequest, "package_id and layer are required")
		return
	}

	if _, err := s.extent.FitToLayer(r.Context(), session.Viewport, req.PackageID, req.Layer); err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, formatSession(session))
}

// handleVisibleFeatures returns the features of a layer inside the viewport.
func (s *Server) handleVisibleFeatures(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	packageID, layer := q.Get("package"), q.Get("layer")
	if packageID == "" || layer == "" {
		s.writeError(w, http.StatusBadRequest, "package and layer parameters are required")
		return
	}

	features, err := s.extent.VisibleFeatures(r.Context(), session.Viewport, packageID, layer)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	response := make([]map[string]interface{}, len(features))
	for i, f := range features {
		response[i] = map[string]interface{}{
			"id":            f.ID,
			"layer":         f.LayerName,
			"geometry_type": f.GeometryType,
			"bounds":        formatEnvelope(f.Bounds),
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"viewport_id": session.ID,
		"package_id":  packageID,
		"layer":       layer,
		"features":    response,
		"count":       len(features),
	})
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":          boolToStatus(details.Healthy),
		"ready":           details.Ready,
		"packages_loaded": details.PackagesLoaded,
		"sessions_active": details.SessionsActive,
		"components":      details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleListPackages returns all registered packages.
func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := s.catalog.ListPackages(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to list packages")
		return
	}

	response := make([]map[string]interface{}, len(packages))
	for i := range packages {
		response[i] = formatPackage(&packages[i])
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"packages": response,
		"count":    len(packages),
	})
}

// handleGetPackage returns a specific package with its layers.
func (s *Server) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := s.catalog.GetPackage(r.Context(), mux.Vars(r)["packageId"])
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	response := formatPackage(pkg)
	layers := make([]map[string]interface{}, len(pkg.Layers))
	for i := range pkg.Layers {
		layers[i] = formatLayer(&pkg.Layers[i])
	}
	response["layers"] = layers

	s.writeJSON(w, http.StatusOK, response)
}

// handleLayerExtent scans a layer and returns its bounds.
func (s *Server) handleLayerExtent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	packageID, layer := vars["packageId"], vars["layer"]

	bounds, err := s.extent.LayerBounds(r.Context(), packageID, layer)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"package_id": packageID,
		"layer":      layer,
		"bounds":     formatEnvelope(bounds),
	})
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := getOpenAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// session looks up the session named by the {id} route variable and
// writes a 404 when it does not exist.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*application.Session, bool) {
	session, err := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.handleDomainError(w, err)
		return nil, false
	}
	return session, true
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseFloat(raw, name string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s parameter is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return v, nil
}

// formatSession formats a session and its viewport state for JSON output.
func formatSession(session *application.Session) map[string]interface{} {
	state := session.Viewport.Snapshot()
	return map[string]interface{}{
		"id":              session.ID,
		"name":            session.Name,
		"created_at":      session.CreatedAt,
		"empty":           state.Empty,
		"srid":            state.Bounds.SRID,
		"screen":          formatScreen(state.Screen),
		"bounds":          formatEnvelope(state.Bounds),
		"world_to_screen": formatTransform(state.WorldToScreen),
		"screen_to_world": formatTransform(state.ScreenToWorld),
	}
}

func formatEnvelope(e domain.Envelope) map[string]interface{} {
	return map[string]interface{}{
		"min_x": e.MinX,
		"min_y": e.MinY,
		"max_x": e.MaxX,
		"max_y": e.MaxY,
		"srid":  e.SRID,
		"empty": e.IsEmpty(),
	}
}

func formatScreen(r domain.ScreenRect) map[string]interface{} {
	return map[string]interface{}{
		"x":      r.X,
		"y":      r.Y,
		"width":  r.Width,
		"height": r.Height,
		"empty":  r.IsEmpty(),
	}
}

func formatTransform(t domain.Transform) transformJSON {
	return transformJSON{
		ScaleX:     t.ScaleX,
		ShearY:     t.ShearY,
		ShearX:     t.ShearX,
		ScaleY:     t.ScaleY,
		TranslateX: t.TranslateX,
		TranslateY: t.TranslateY,
	}
}

// formatPackage formats a GeoPackage for JSON output.
func formatPackage(pkg *domain.GeoPackage) map[string]interface{} {
	return map[string]interface{}{
		"id":          pkg.ID,
		"name":        pkg.Name,
		"path":        pkg.Path,
		"size":        pkg.Size,
		"layer_count": pkg.LayerCount(),
		"loaded_at":   pkg.LoadedAt,
	}
}

func formatLayer(l *domain.Layer) map[string]interface{} {
	layer := map[string]interface{}{
		"name":            l.Name,
		"description":     l.Description,
		"geometry_type":   l.GeometryType,
		"geometry_column": l.GeometryColumn,
		"srid":            l.SRID,
		"feature_count":   l.FeatureCount,
	}
	if l.Extent != nil {
		layer["extent"] = formatEnvelope(*l.Extent)
	}
	return layer
}

// handleDomainError maps domain errors to HTTP status codes.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		s.writeError(w, http.StatusBadRequest, validationErr.Message)
		return
	}

	var transformErr *domain.TransformError
	if errors.As(err, &transformErr) {
		s.writeError(w, http.StatusUnprocessableEntity, transformErr.Error())
		return
	}

	var reprojErr *domain.ReprojectionError
	if errors.As(err, &reprojErr) {
		s.writeError(w, http.StatusUnprocessableEntity, reprojErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, "Viewport not found")
	case errors.Is(err, domain.ErrPackageNotFound):
		s.writeError(w, http.StatusNotFound, "Package not found")
	case errors.Is(err, domain.ErrLayerNotFound):
		s.writeError(w, http.StatusNotFound, "Layer not found")
	case errors.Is(err, domain.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnsupported):
		s.writeError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
