package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Daskott/safepoint/server/auth"
	"github.com/Daskott/safepoint/server/cache"
	"github.com/Daskott/safepoint/server/models"
	"github.com/Daskott/safepoint/server/work"
	"github.com/Daskott/safepoint/utils"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	if payLoad.Errors == nil {
		payLoad.Errors = []string{}
	}

	if statusCode < http.StatusBadRequest {
		payLoad.Success = true
	}

	rw.WriteHeader(statusCode)
	if err := json.NewEncoder(rw).Encode(payLoad); err != nil {
		logg.Errorf("unable to encode response: %v", err)
	}
}

func writeErrResponse(rw http.ResponseWriter, err error, statusCode int) {
	writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, statusCode)
}

// writeModelErrResponse maps a models error to the right status code
func writeModelErrResponse(rw http.ResponseWriter, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"not found"}}, http.StatusNotFound)
		return
	}

	writeErrResponse(rw, err, http.StatusInternalServerError)
}

func writeValidationErrResponse(rw http.ResponseWriter, errs error) {
	writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
}

func decodeJSONBody(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(dst)
	if err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

func removeUnknownFields(args map[string]interface{}, validFields map[string]bool) {
	for key := range args {
		if !validFields[key] {
			delete(args, key)
		}
	}
}

func pageFromQuery(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		return 1
	}
	return page
}

func mapSlice[T any](items []T, toMap func(item *T) map[string]interface{}) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(items))
	for i := range items {
		result = append(result, toMap(&items[i]))
	}
	return result
}

func RegisterValidators(validate *validator.Validate) error {
	err := validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		// if whitespace in password return false
		err := validate.Var(fl.Field().String(), "contains= ")
		if err == nil {
			return false
		}
		return len(fl.Field().String()) >= 6
	})
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("incident_type", func(fl validator.FieldLevel) bool {
		return models.IncidentTypeNameMap[fl.Field().String()]
	})
	if err != nil {
		return err
	}

	return nil
}

// ---------------------------------------------------------------------------------//
// Middleware Helper functions
// --------------------------------------------------------------------------------//

func decodeAndVerifyAuthHeader(ctx context.Context, authHeaderValue string) DecodedJWT {
	token, err := auth.ParseBearerToken(authHeaderValue)
	if err != nil {
		return DecodedJWT{ErrorMsg: err.Error()}
	}

	tokenClaims, err := auth.DecodeJWT(token, authKeyPair)
	if err == nil {
		if appCache.IsTokenRevoked(tokenClaims.Id) {
			return DecodedJWT{ErrorMsg: auth.ErrInvalidAuthorizationHeader.Error()}
		}

		// validate that the user account still exists
		user, err := cachedUser(tokenClaims.Subject)
		if err != nil {
			return DecodedJWT{ErrorMsg: auth.ErrInvalidAuthorizationHeader.Error()}
		}

		// the role in the token may be stale, the stored role wins
		tokenClaims.IsAdmin = user.UserType() == models.ADMIN_USER_ROLE

		return DecodedJWT{Claims: tokenClaims}
	}

	if firebaseVerifier != nil {
		return decodeFirebaseIDToken(ctx, token)
	}

	return DecodedJWT{ErrorMsg: auth.ErrInvalidAuthorizationHeader.Error()}
}

// decodeFirebaseIDToken verifies a Firebase ID token and matches it to a local user,
// by firebase uid first and then by email, linking the uid on first use.
func decodeFirebaseIDToken(ctx context.Context, token string) DecodedJWT {
	identity, err := firebaseVerifier.Verify(ctx, token)
	if err != nil {
		return DecodedJWT{ErrorMsg: auth.ErrInvalidAuthorizationHeader.Error()}
	}

	user, err := models.FindUserBy("firebase_uid", identity.UID)
	if errors.Is(err, gorm.ErrRecordNotFound) && identity.Email != "" {
		user, err = models.FindUserBy("email", identity.Email)
		if err == nil {
			err = user.LinkFirebaseUID(identity.UID)
		}
	}

	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logg.Error(err)
		}
		return DecodedJWT{ErrorMsg: auth.ErrInvalidAuthorizationHeader.Error()}
	}

	claims := auth.SafePointTokenClaims{FullName: user.FullName, IsAdmin: user.UserType() == models.ADMIN_USER_ROLE}
	claims.Subject = fmt.Sprint(user.ID)
	return DecodedJWT{Claims: &claims}
}

// cachedUser looks up the user with 'userID', keeping it in the cache for a minute
func cachedUser(userID interface{}) (*models.User, error) {
	if value, found := appCache.Get(cache.UserKey(userID)); found {
		return value.(*models.User), nil
	}

	user, err := models.FindUserBy("id", userID)
	if err != nil {
		return nil, err
	}

	appCache.Set(cache.UserKey(userID), user, cache.DEFAULT_EXPIRATION)
	return user, nil
}

// client is only able to update/view their own record unless client is an admin
// who can GET/DELETE certain user resources
func canAccessUserResource(r *http.Request, userClaims *auth.SafePointTokenClaims) bool {
	allowedMethodsForAdmins := map[string]bool{"GET": true, "DELETE": true}
	deniedPathsForAdmin := []string{"/contacts"}

	if mux.Vars(r)["uid"] == userClaims.Subject {
		return true
	}

	if !userClaims.IsAdmin {
		return false
	}

	if !allowedMethodsForAdmins[r.Method] {
		return false
	}

	for _, deniedPath := range deniedPathsForAdmin {
		if strings.Contains(r.URL.Path, deniedPath) {
			return false
		}
	}

	return true
}

func requestClaims(r *http.Request) *auth.SafePointTokenClaims {
	decodedJWT, ok := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)
	if !ok {
		return nil
	}
	return decodedJWT.Claims
}

// ---------------------------------------------------------------------------------//
// Job Helper functions
// --------------------------------------------------------------------------------//

// mirrorDocumentLater enqueues a job that copies the latest version of a document into firestore
func mirrorDocumentLater(collection string, id uint) {
	if docMirror == nil {
		return
	}

	err := workerPool.Perform(work.JobParams{
		Name:    fmt.Sprintf("%v-%v-%v", MIRROR_DOCUMENT_HANDLER, collection, id),
		Handler: MIRROR_DOCUMENT_HANDLER,
		Args:    map[string]interface{}{"collection": collection, "id": id},

		// a mirror that is already running may have read the document before this change
		UniqueWithin: []string{models.ENQUEUED_JOB},
	})
	if err != nil {
		logg.Error(err)
	}
}

func uintArg(args map[string]interface{}, key string) (uint, error) {
	switch value := args[key].(type) {
	case float64:
		return uint(value), nil
	case uint:
		return value, nil
	case int:
		return uint(value), nil
	}

	return 0, fmt.Errorf("invalid '%v' arg: %v", key, args[key])
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("SafePoint server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(server *http.Server, backupDb bool) {
	workerPool.Stop()

	if backupDb {
		err := backupSqliteDb(nil)
		if err != nil {
			logg.Error(err)
		}
	}

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("SafePoint server shutdown failed:%+s", err)
	}

	logg.Infof("SafePoint server stopped properly")
}

// configDirectory retrieves the directory to store safepoint data
// Or logs an error message and then calls os.Exit if it's unable to.
func configDirectory(devMode bool) string {
	// Use 'safepoint' folder in home directory for prod
	configFolderName := ".safepoint"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
