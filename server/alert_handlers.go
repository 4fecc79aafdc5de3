package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Daskott/safepoint/server/docstore"
	"github.com/Daskott/safepoint/server/metrics"
	"github.com/Daskott/safepoint/server/models"
	"github.com/Daskott/safepoint/server/twilio"
	"github.com/Daskott/safepoint/server/work"
	"github.com/gorilla/mux"
)

var errNoEmergencyContacts = errors.New("no emergency contacts, please add contacts first")

// twilioStatusMap maps twilio message statuses to the delivery statuses we care about
var twilioStatusMap = map[string]string{
	"delivered":   models.DELIVERED_DELIVERY,
	"failed":      models.FAILED_DELIVERY,
	"undelivered": models.FAILED_DELIVERY,
}

// createEmergencyAlert stores an SOS alert & queues one SMS per emergency contact
func createEmergencyAlert(rw http.ResponseWriter, r *http.Request) {
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

	alert := models.EmergencyAlert{
		IncidentType: req.IncidentType,
		Location:     location,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	}

	errs := validate.Struct(alert)
	if errs != nil {
		writeValidationErrResponse(rw, errs)
		return
	}

	user, err := models.FindUserWithContacts(vars["uid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	if len(user.Contacts) == 0 {
		writeErrResponse(rw, errNoEmergencyContacts, http.StatusBadRequest)
		return
	}

	err = models.CreateEmergencyAlert(user, &alert, user.Contacts)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}
	metrics.AlertsCreatedTotal.Inc()

	for _, delivery := range alert.Deliveries {
		err = workerPool.Perform(work.JobParams{
			Name:    fmt.Sprintf("%v-%v", SEND_ALERT_SMS_HANDLER, delivery.ID),
			Handler: SEND_ALERT_SMS_HANDLER,
			Args:    map[string]interface{}{"delivery_id": delivery.ID},
		})
		if err != nil {
			logg.Error(err)
		}
	}

	mirrorDocumentLater(docstore.ALERTS_COLLECTION, alert.ID)

	data := alert.ToMap()
	data["deliveries"] = alert.Deliveries
	writeResponse(rw, ResponsePayload{Data: data}, http.StatusCreated)
}

func userEmergencyAlerts(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	alerts, paging, err := models.FetchUserEmergencyAlerts(vars["uid"], pageFromQuery(r))
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{
		"alerts": alertsWithDeliveries(alerts),
		"paging": paging,
	}}, http.StatusOK)
}

func emergencyAlerts(rw http.ResponseWriter, r *http.Request) {
	alerts, paging, err := models.FetchEmergencyAlerts(pageFromQuery(r))
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{
		"alerts": alertsWithDeliveries(alerts),
		"paging": paging,
	}}, http.StatusOK)
}

// smsStatusWebhook receives message status callbacks from twilio
func smsStatusWebhook(rw http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	if !smsClient.ValidateRequest(twilio.STATUS_CALLBACK_PATH, r.PostForm, r.Header.Get("X-Twilio-Signature")) {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid request signature"}}, http.StatusUnauthorized)
		return
	}

	status, ok := twilioStatusMap[r.PostForm.Get("MessageStatus")]
	if !ok {
		// queued/sending/sent updates don't change anything for us
		writeResponse(rw, ResponsePayload{}, http.StatusOK)
		return
	}

	err = models.UpdateDeliveryStatusBySid(r.PostForm.Get("MessageSid"), status)
	if errors.Is(err, models.ErrUnknownMessageSid) {
		writeErrResponse(rw, err, http.StatusNotFound)
		return
	}

	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	metrics.SmsDeliveriesTotal.WithLabelValues(status).Inc()
	writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

func alertsWithDeliveries(alerts []models.EmergencyAlert) []map[string]interface{} {
	return mapSlice(alerts, func(alert *models.EmergencyAlert) map[string]interface{} {
		data := alert.ToMap()
		data["deliveries"] = alert.Deliveries
		return data
	})
}
