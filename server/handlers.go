package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Daskott/safepoint/server/auth"
	"github.com/Daskott/safepoint/server/auth/key"
	"github.com/Daskott/safepoint/server/cache"
	"github.com/Daskott/safepoint/server/models"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type ResponsePayload struct {
	Errors  []string    `json:"errors"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func healthCheck(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{"status": "ok"}}, http.StatusOK)
}

func jwks(rw http.ResponseWriter, r *http.Request) {
	jwk, err := authKeyPair.JWK()
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: key.ExportJWKAsJWKS(jwk)}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Auth
// --------------------------------------------------------------------------------//

func createUser(rw http.ResponseWriter, r *http.Request) {
	user := models.User{}
	err := decodeJSONBody(r, &user)
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	user.FullName = strings.TrimSpace(user.FullName)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	errs := validate.Struct(user)
	if errs != nil {
		writeValidationErrResponse(rw, errs)
		return
	}

	err = models.CreateUser(&user)
	if errors.Is(err, models.ErrEmailTaken) {
		writeErrResponse(rw, err, http.StatusConflict)
		return
	}

	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: user.ToMap()}, http.StatusCreated)
}

func login(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]string)
	err := decodeJSONBody(r, &data)
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	email := strings.ToLower(strings.TrimSpace(data["email"]))
	passwordHash, err := models.FindUserPassword(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	if !auth.CheckPasswordHash(data["password"], passwordHash) {
		writeResponse(rw, ResponsePayload{Errors: []string{"email/password is invalid"}}, http.StatusUnauthorized)
		return
	}

	user, err := models.FindUserBy("email", email)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	claims := auth.NewTokenClaims(user.ID, user.FullName, user.UserType() == models.ADMIN_USER_ROLE, tokenTTL)
	token, err := auth.EncodeJWT(claims, authKeyPair)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{"token": token, "user": user.ToMap()}}, http.StatusOK)
}

func logout(rw http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)
	if claims.Id == "" {
		writeResponse(rw, ResponsePayload{Errors: []string{"only tokens issued by safepoint can be revoked"}}, http.StatusBadRequest)
		return
	}

	appCache.RevokeToken(claims.Id, time.Unix(claims.ExpiresAt, 0))
	writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Users
// --------------------------------------------------------------------------------//

func findUser(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	user, err := models.FindUserBy("id", vars["uid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	data := user.ToMap()

	// Admins are not allowed to see a user's contacts
	if fmt.Sprint(user.ID) == requestClaims(r).Subject {
		err = user.LoadContacts()
		if err != nil {
			writeErrResponse(rw, err, http.StatusInternalServerError)
			return
		}
		data["contacts"] = mapSlice(user.Contacts, (*models.Contact).ToMap)
	}

	writeResponse(rw, ResponsePayload{Data: data}, http.StatusOK)
}

func updateUser(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var errs []string
	data := make(map[string]interface{})

	err := decodeJSONBody(r, &data)
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{"full_name": true, "phone_number": true, "nic": true, "password": true})
	if len(data) <= 0 {
		writeResponse(rw,
			ResponsePayload{Errors: []string{"valid fields required"}},
			http.StatusBadRequest,
		)
		return
	}

	rules := map[string]string{
		"full_name":    "required,min=3",
		"phone_number": "required,e164",
		"password":     "required,password",
	}
	for field, rule := range rules {
		if data[field] == nil {
			continue
		}

		value, ok := data[field].(string)
		if !ok || validate.Var(value, rule) != nil {
			errs = append(errs, fmt.Sprintf("%v is invalid", field))
		}
	}

	if len(errs) > 0 {
		writeResponse(rw, ResponsePayload{Errors: errs}, http.StatusBadRequest)
		return
	}

	user, err := models.FindUserBy("id", vars["uid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	err = user.Update(data)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}
	appCache.Delete(cache.UserKey(vars["uid"]))

	writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

func deleteUser(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	err := models.DeleteUser(vars["uid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}
	appCache.Delete(cache.UserKey(vars["uid"]))

	writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

// users lists basic users, admins are not included
func users(rw http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)

	users, paging, err := models.FetchUsersByRole(models.BASIC_USER_ROLE, page)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{
		"users":  mapSlice(users, (*models.User).ToMap),
		"paging": paging,
	}}, http.StatusOK)
}

func updateUserRole(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	data := make(map[string]string)

	err := decodeJSONBody(r, &data)
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	if !models.RoleNameMap[data["role"]] {
		writeResponse(rw, ResponsePayload{Errors: []string{fmt.Sprintf("role must be one of '%v' or '%v'", models.BASIC_USER_ROLE, models.ADMIN_USER_ROLE)}}, http.StatusBadRequest)
		return
	}

	user, err := models.FindUserBy("id", vars["uid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	err = user.SetRole(data["role"])
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}
	appCache.Delete(cache.UserKey(vars["uid"]))

	writeResponse(rw, ResponsePayload{Data: user.ToMap()}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Emergency contacts
// --------------------------------------------------------------------------------//

func createContact(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	contact := models.Contact{}

	err := decodeJSONBody(r, &contact)
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	errs := validate.Struct(contact)
	if errs != nil {
		writeValidationErrResponse(rw, errs)
		return
	}

	user, err := models.FindUserBy("id", vars["uid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	err = user.AddContact(&contact)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: contact.ToMap()}, http.StatusCreated)
}

func contacts(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	user, err := models.FindUserWithContacts(vars["uid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: mapSlice(user.Contacts, (*models.Contact).ToMap)}, http.StatusOK)
}

func updateContact(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var errs []string
	data := make(map[string]interface{})

	err := decodeJSONBody(r, &data)
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{"name": true, "phone_number": true, "relationship": true})
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	rules := map[string]string{
		"name":         "required,min=3",
		"phone_number": "required,e164",
		"relationship": "required",
	}
	for field, value := range data {
		str, ok := value.(string)
		if !ok || validate.Var(str, rules[field]) != nil {
			errs = append(errs, fmt.Sprintf("%v is invalid", field))
		}
	}

	if len(errs) > 0 {
		writeResponse(rw, ResponsePayload{Errors: errs}, http.StatusBadRequest)
		return
	}

	user, err := models.FindUserBy("id", vars["uid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	err = user.UpdateContact(vars["cid"], data)
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	contact, err := user.FindContact(vars["cid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: contact.ToMap()}, http.StatusOK)
}

func deleteContact(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	user, err := models.FindUserBy("id", vars["uid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	err = user.DeleteContact(vars["cid"])
	if err != nil {
		writeModelErrResponse(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Jobs
// --------------------------------------------------------------------------------//

func jobStats(rw http.ResponseWriter, r *http.Request) {
	stats, err := models.CurrentJobsStats()
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: stats}, http.StatusOK)
}

func jobs(rw http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !models.JobStatusNameMap[status] {
		writeResponse(rw, ResponsePayload{Errors: []string{fmt.Sprintf("invalid job status '%v'", status)}}, http.StatusBadRequest)
		return
	}

	jobs, paging, err := models.FetchJobs(pageFromQuery(r), status)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Data: map[string]interface{}{"jobs": jobs, "paging": paging}}, http.StatusOK)
}
