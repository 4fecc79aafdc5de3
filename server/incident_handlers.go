package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/Daskott/safepoint/server/docstore"
	"github.com/Daskott/safepoint/server/geo"
	"github.com/Daskott/safepoint/server/imagestore"
	"github.com/Daskott/safepoint/server/metrics"
	"github.com/Daskott/safepoint/server/models"
	"github.com/gorilla/mux"
)

var errLocationRequired = errors.New("location is required")

// locationRequest is the location snapshot sent along with incidents & alerts
type locationRequest struct {
	IncidentType string  `json:"incident_type"`
	Description  string  `json:"description"`
	Address      string  `json:"address"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

func (req *locationRequest) location() (string, error) {
	if !geo.HasLocation(req.Latitude, req.Longitude) {
		return "", errLocationRequired
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		address = geo.FallbackAddress(req.Latitude, req.Longitude)
	}
	return address, nil
}

func createIncidentReport(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	req := locationRequest{}

	err := decodeJSONBody(r, &req)
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	location, err := req.location()
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	report := models.IncidentReport{
		IncidentType: req.IncidentType,
		Description:  strings.TrimSpace(req.Description),
		Location:     location,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	}

	errs := validate.Struct(report)
	if errs != nil {
		writeValidationErrResponse(rw, errs)
		return
	}

	user, err := models.FindUserBy("id", vars["uid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	err = models.CreateIncidentReport(user, &report)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	metrics.IncidentsReportedTotal.WithLabelValues(report.IncidentType).Inc()
	mirrorDocumentLater(docstore.INCIDENTS_COLLECTION, report.ID)

	writeResponse(rw, ResponsePayload{Data: report.ToMap()}, http.StatusCreated)
}

func uploadIncidentImage(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if imageStore == nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"image uploads are not enabled"}}, http.StatusServiceUnavailable)
		return
	}

	report, err := models.FindIncidentReport(vars["id"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	if fmt.Sprint(report.UserID) != vars["uid"] {
		writeResponse(rw, ResponsePayload{Errors: []string{"not found"}}, http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(rw, r.Body, imagestore.MAX_IMAGE_SIZE+(1<<20))
	err = r.ParseMultipartForm(imagestore.MAX_IMAGE_SIZE)
	if err != nil {
		writeErrResponse(rw, fmt.Errorf("invalid multipart form: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeErrResponse(rw, fmt.Errorf("image is required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > imagestore.MAX_IMAGE_SIZE {
		writeResponse(rw, ResponsePayload{Errors: []string{"image must be 10MB or less"}}, http.StatusBadRequest)
		return
	}

	contentType, err := imagestore.DetectContentType(file)
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	extension, err := imagestore.ImageExtension(contentType)
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	objectName := imagestore.ObjectName(imagePrefix, report.ID, extension)
	url, err := imageStore.Put(r.Context(), objectName, file, header.Size, contentType)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	err = report.SetImageURL(url)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	mirrorDocumentLater(docstore.INCIDENTS_COLLECTION, report.ID)
	writeResponse(rw, ResponsePayload{Data: report.ToMap()}, http.StatusOK)
}

func userIncidentReports(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	reports, paging, err := models.FetchUserIncidentReports(vars["uid"], pageFromQuery(r))
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{
		"incidents": mapSlice(reports, (*models.IncidentReport).ToMap),
		"paging":    paging,
	}}, http.StatusOK)
}

// incidentReports lists every report for admins, optionally filtered by status
func incidentReports(rw http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !models.IncidentStatusNameMap[status] {
		writeResponse(rw, ResponsePayload{Errors: []string{fmt.Sprintf("invalid incident status '%v'", status)}}, http.StatusBadRequest)
		return
	}

	reports, paging, err := models.FetchIncidentReports(pageFromQuery(r), status)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	stats, err := models.CurrentIncidentStats()
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{
		"incidents": mapSlice(reports, (*models.IncidentReport).ToMap),
		"paging":    paging,
		"stats":     stats,
	}}, http.StatusOK)
}

func findIncidentReport(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	claims := requestClaims(r)

	report, err := models.FindIncidentReport(vars["id"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	if !claims.IsAdmin && fmt.Sprint(report.UserID) != claims.Subject {
		writeResponse(rw, ResponsePayload{Errors: []string{"action is forbidden"}}, http.StatusForbidden)
		return
	}

	writeResponse(rw, ResponsePayload{Data: report.ToMap()}, http.StatusOK)
}

func updateIncidentStatus(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	data := make(map[string]string)

	err := decodeJSONBody(r, &data)
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	if !models.IncidentStatusNameMap[data["status"]] {
		writeResponse(rw, ResponsePayload{Errors: []string{fmt.Sprintf(
			"status must be one of '%v', '%v' or '%v'",
			models.PENDING_INCIDENT, models.IN_PROGRESS_INCIDENT, models.RESOLVED_INCIDENT,
		)}}, http.StatusBadRequest)
		return
	}

	report, err := models.UpdateIncidentStatus(vars["id"], data["status"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	mirrorDocumentLater(docstore.INCIDENTS_COLLECTION, report.ID)
	writeResponse(rw, ResponsePayload{Data: report.ToMap()}, http.StatusOK)
}

// nearbyIncidents returns unresolved incidents around a point, nearest first.
// Reporter details are left out since any user can see these.
func nearbyIncidents(rw http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(query.Get("lng"), 64)
	if latErr != nil || lngErr != nil || !geo.ValidCoordinates(lat, lng) {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid 'lat' & 'lng' query params are required"}}, http.StatusBadRequest)
		return
	}

	radiusKm := 0.0
	if query.Get("radius_km") != "" {
		var err error
		radiusKm, err = strconv.ParseFloat(query.Get("radius_km"), 64)
		if err != nil || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
			writeResponse(rw, ResponsePayload{Errors: []string{"'radius_km' must be a number"}}, http.StatusBadRequest)
			return
		}
	}
	radiusKm = geo.ClampRadiusKm(radiusKm)

	box := geo.BoundingBoxAround(lat, lng, radiusKm)
	candidates, err := models.UnresolvedIncidentsWithin(lat, lng, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng, box.FilterLng)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	type nearbyIncident struct {
		report     *models.IncidentReport
		distanceKm float64
	}

	nearby := []nearbyIncident{}
	for i := range candidates {
		distance := geo.DistanceKm(lat, lng, candidates[i].Latitude, candidates[i].Longitude)
		if distance <= radiusKm {
			nearby = append(nearby, nearbyIncident{report: &candidates[i], distanceKm: distance})
		}
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].distanceKm < nearby[j].distanceKm
	})

	incidents := make([]map[string]interface{}, 0, len(nearby))
	for _, incident := range nearby {
		data := incident.report.ToMap()
		delete(data, "userId")
		delete(data, "userFullName")
		delete(data, "userPhoneNumber")
		data["distanceKm"] = incident.distanceKm
		incidents = append(incidents, data)
	}

	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{
		"incidents": incidents,
		"radiusKm":  radiusKm,
	}}, http.StatusOK)
}
