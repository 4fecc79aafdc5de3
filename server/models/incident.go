package models

import (
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IncidentReport struct {
	BaseModel
	UserID          uint    `json:"user_id" gorm:"not null;index"`
	UserFullName    string  `json:"user_full_name"`
	UserPhoneNumber string  `json:"user_phone_number"`
	IncidentType    string  `json:"incident_type" validate:"required,incident_type"`
	Description     string  `json:"description" validate:"max=2000"`
	Location        string  `json:"location"`
	Latitude        float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude       float64 `json:"longitude" validate:"min=-180,max=180"`
	Status          string  `json:"status" gorm:"not null;default:pending;index"`
	ImageURL        string  `json:"image_url,omitempty"`
}

func (report *IncidentReport) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"reportId":        fmt.Sprint(report.ID),
		"userId":          fmt.Sprint(report.UserID),
		"userFullName":    report.UserFullName,
		"userPhoneNumber": report.UserPhoneNumber,
		"incidentType":    report.IncidentType,
		"description":     report.Description,
		"location":        report.Location,
		"latitude":        report.Latitude,
		"longitude":       report.Longitude,
		"timestamp":       report.CreatedAt,
		"status":          report.Status,
		"imageUrl":        report.ImageURL,
	}
}

func (report *IncidentReport) SetImageURL(url string) error {
	err := db.Model(&IncidentReport{}).Where("id = ?", report.ID).
		Updates(map[string]interface{}{"image_url": url, "updated_at": time.Now()}).Error
	if err != nil {
		return err
	}

	report.ImageURL = url
	return nil
}

// CreateIncidentReport stores a new report reported by 'user'. The reporter's
// name & phone number are copied onto the report as they were at the time.
func CreateIncidentReport(user *User, report *IncidentReport) error {
	report.ID = 0
	report.UserID = user.ID
	report.UserFullName = user.FullName
	report.UserPhoneNumber = user.PhoneNumber
	report.Status = PENDING_INCIDENT
	report.ImageURL = ""

	return db.Create(report).Error
}

func FindIncidentReport(id interface{}) (*IncidentReport, error) {
	report := IncidentReport{}
	err := db.First(&report, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &report, nil
}

// UpdateIncidentStatus sets the status of the report with 'id' and returns the updated report
func UpdateIncidentStatus(id interface{}, status string) (*IncidentReport, error) {
	if !IncidentStatusNameMap[status] {
		return nil, fmt.Errorf("invalid incident status '%v'", status)
	}

	report, err := FindIncidentReport(id)
	if err != nil {
		return nil, err
	}

	err = db.Model(&IncidentReport{}).Where("id = ?", report.ID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
	if err != nil {
		return nil, err
	}

	report.Status = status
	return report, nil
}

// FetchIncidentReports returns reports newest first, filtered by 'status' when it's not empty
func FetchIncidentReports(page int, status string) ([]IncidentReport, *Paging, error) {
	query := func(tx *gorm.DB) *gorm.DB {
		if status == "" {
			return tx
		}
		return tx.Where("status = ?", status)
	}

	return fetchIncidentReports(page, query)
}

func FetchUserIncidentReports(userID interface{}, page int) ([]IncidentReport, *Paging, error) {
	return fetchIncidentReports(page, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ?", userID)
	})
}

// MaxNearbyCandidates caps how many incidents UnresolvedIncidentsWithin returns
var MaxNearbyCandidates = 1000

// nearestFirstSQL approximates the squared distance from @lat,@lng in degrees, wrapping
// longitude across the antimeridian. It only needs to rank candidates, the exact
// distance is worked out by the caller.
const nearestFirstSQL = `(latitude - @lat) * (latitude - @lat) + @lng_scale *
	(CASE WHEN ABS(longitude - @lng) > 180 THEN 360 - ABS(longitude - @lng) ELSE ABS(longitude - @lng) END) *
	(CASE WHEN ABS(longitude - @lng) > 180 THEN 360 - ABS(longitude - @lng) ELSE ABS(longitude - @lng) END)`

// UnresolvedIncidentsWithin returns incidents that are not resolved, which fall within the given
// latitude range and, when 'filterLng' is true, the longitude range. Incidents closest
// to (lat, lng) come first, so the cap drops the furthest ones.
func UnresolvedIncidentsWithin(lat, lng, minLat, maxLat, minLng, maxLng float64, filterLng bool) ([]IncidentReport, error) {
	reports := []IncidentReport{}

	query := db.Where("status <> ?", RESOLVED_INCIDENT).
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("NOT (latitude = 0 AND longitude = 0)")

	if filterLng {
		query = query.Where("longitude BETWEEN ? AND ?", minLng, maxLng)
	}

	lngScale := math.Pow(math.Cos(lat*math.Pi/180), 2)
	query = query.Clauses(clause.OrderBy{Expression: clause.NamedExpr{
		SQL:  nearestFirstSQL,
		Vars: []interface{}{map[string]interface{}{"lat": lat, "lng": lng, "lng_scale": lngScale}},
	}})

	err := query.Limit(MaxNearbyCandidates).Find(&reports).Error
	if err != nil {
		return nil, err
	}

	return reports, nil
}

func fetchIncidentReports(page int, query func(tx *gorm.DB) *gorm.DB) ([]IncidentReport, *Paging, error) {
	var total int64
	reports := []IncidentReport{}

	err := db.Model(&IncidentReport{}).Scopes(query).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(query, newestFirst, paginate(page, MAX_PAGE_SIZE)).Find(&reports).Error
	if err != nil {
		return nil, nil, err
	}

	return reports, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}
