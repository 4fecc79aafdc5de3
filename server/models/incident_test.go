package models

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func createTestIncident(t *testing.T, user *User, incidentType string, lat, lng float64) *IncidentReport {
	report := &IncidentReport{IncidentType: incidentType, Location: "Main St", Latitude: lat, Longitude: lng}
	require.Nil(t, CreateIncidentReport(user, report))
	return report
}

func TestCreateIncidentReport(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "Jane Doe", "jane@example.com")

	report := &IncidentReport{
		IncidentType: ROBBERY_INCIDENT_TYPE,
		Location:     "Main St",
		Latitude:     6.9271,
		Longitude:    79.8612,
		Status:       RESOLVED_INCIDENT,
		ImageURL:     "https://example.com/image.jpg",
	}
	require.Nil(t, CreateIncidentReport(user, report))

	found, err := FindIncidentReport(report.ID)
	require.Nil(t, err)
	assert.Equal(t, PENDING_INCIDENT, found.Status, "new reports always start as pending")
	assert.Empty(t, found.ImageURL)
	assert.Equal(t, "Jane Doe", found.UserFullName)
	assert.Equal(t, "+14165550100", found.UserPhoneNumber)

	require.Nil(t, found.SetImageURL("https://images.test/1.jpg"))
	found, err = FindIncidentReport(report.ID)
	require.Nil(t, err)
	assert.Equal(t, "https://images.test/1.jpg", found.ImageURL)
}

func TestUpdateIncidentStatus(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "Jane Doe", "jane@example.com")
	report := createTestIncident(t, user, ASSAULT_INCIDENT_TYPE, 6.9271, 79.8612)

	updated, err := UpdateIncidentStatus(report.ID, RESOLVED_INCIDENT)
	require.Nil(t, err)
	assert.Equal(t, RESOLVED_INCIDENT, updated.Status)

	// Any status can be set again, including going back to pending
	updated, err = UpdateIncidentStatus(report.ID, PENDING_INCIDENT)
	require.Nil(t, err)
	assert.Equal(t, PENDING_INCIDENT, updated.Status)

	_, err = UpdateIncidentStatus(report.ID, "closed")
	assert.NotNil(t, err)

	_, err = UpdateIncidentStatus(999, RESOLVED_INCIDENT)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFetchIncidentReports(t *testing.T) {
	InitializeTestDb()
	jane := createTestUser(t, "Jane Doe", "jane@example.com")
	john := createTestUser(t, "John Doe", "john@example.com")

	first := createTestIncident(t, jane, ASSAULT_INCIDENT_TYPE, 6.9271, 79.8612)
	createTestIncident(t, jane, OTHER_INCIDENT_TYPE, 6.9271, 79.8612)
	last := createTestIncident(t, john, KIDNAP_INCIDENT_TYPE, 6.9271, 79.8612)

	_, err := UpdateIncidentStatus(first.ID, IN_PROGRESS_INCIDENT)
	require.Nil(t, err)

	reports, paging, err := FetchIncidentReports(1, "")
	require.Nil(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, last.ID, reports[0].ID)
	assert.Equal(t, &Paging{Total: 3, Page: 1, Pages: 1}, paging)

	reports, _, err = FetchIncidentReports(1, IN_PROGRESS_INCIDENT)
	require.Nil(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, first.ID, reports[0].ID)

	reports, _, err = FetchIncidentReports(2, "")
	require.Nil(t, err)
	assert.Len(t, reports, 0)

	reports, _, err = FetchUserIncidentReports(jane.ID, 1)
	require.Nil(t, err)
	assert.Len(t, reports, 2)

	stats, err := CurrentIncidentStats()
	require.Nil(t, err)
	assert.Equal(t, IncidentStats{PendingCount: 2, InProgressCount: 1}, *stats)
}

func TestUnresolvedIncidentsWithin(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "Jane Doe", "jane@example.com")

	inside := createTestIncident(t, user, OTHER_INCIDENT_TYPE, 6.93, 79.86)
	resolved := createTestIncident(t, user, OTHER_INCIDENT_TYPE, 6.93, 79.86)
	createTestIncident(t, user, OTHER_INCIDENT_TYPE, 6.93, 81.00)
	createTestIncident(t, user, OTHER_INCIDENT_TYPE, 0, 0)

	_, err := UpdateIncidentStatus(resolved.ID, RESOLVED_INCIDENT)
	require.Nil(t, err)

	reports, err := UnresolvedIncidentsWithin(6.93, 79.86, 6.8, 7.0, 79.8, 79.9, true)
	require.Nil(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, inside.ID, reports[0].ID)

	reports, err = UnresolvedIncidentsWithin(6.93, 79.86, 6.8, 7.0, 0, 0, false)
	require.Nil(t, err)
	assert.Len(t, reports, 2)

	// Reports without a location are never matched
	reports, err = UnresolvedIncidentsWithin(0, 0, -1, 1, -1, 1, true)
	require.Nil(t, err)
	assert.Len(t, reports, 0)
}

func TestUnresolvedIncidentsWithinKeepsNearest(t *testing.T) {
	InitializeTestDb()
	user := createTestUser(t, "Jane Doe", "jane@example.com")

	savedMax := MaxNearbyCandidates
	MaxNearbyCandidates = 2
	defer func() { MaxNearbyCandidates = savedMax }()

	far := createTestIncident(t, user, OTHER_INCIDENT_TYPE, 6.99, 79.86)
	near := createTestIncident(t, user, OTHER_INCIDENT_TYPE, 6.93, 79.87)
	nearest := createTestIncident(t, user, OTHER_INCIDENT_TYPE, 6.93, 79.86)

	reports, err := UnresolvedIncidentsWithin(6.93, 79.86, 6.8, 7.0, 79.8, 79.9, true)
	require.Nil(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, nearest.ID, reports[0].ID)
	assert.Equal(t, near.ID, reports[1].ID)
	assert.NotEqual(t, far.ID, reports[1].ID)

	// Longitude distance wraps around the antimeridian
	east := createTestIncident(t, user, OTHER_INCIDENT_TYPE, 10, 179.9)
	west := createTestIncident(t, user, OTHER_INCIDENT_TYPE, 10, -179.95)
	createTestIncident(t, user, OTHER_INCIDENT_TYPE, 10, 170)

	reports, err = UnresolvedIncidentsWithin(10, -179.99, 9, 11, 0, 0, false)
	require.Nil(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, west.ID, reports[0].ID)
	assert.Equal(t, east.ID, reports[1].ID)
}

func TestFetchIncidentReportsCountError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.Nil(t, err)
	defer sqlDB.Close()

	gormDB, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.Nil(t, err)

	previousDB := db
	UseDB(gormDB)
	defer UseDB(previousDB)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `incident_reports` WHERE status = ?")).
		WithArgs(PENDING_INCIDENT).
		WillReturnError(errors.New("connection reset"))

	reports, paging, err := FetchIncidentReports(1, PENDING_INCIDENT)
	assert.EqualError(t, err, "connection reset")
	assert.Nil(t, reports)
	assert.Nil(t, paging)
	assert.Nil(t, mock.ExpectationsWereMet())
}
