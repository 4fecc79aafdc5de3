package models

const (
	PENDING_INCIDENT     = "pending"
	IN_PROGRESS_INCIDENT = "in_progress"
	RESOLVED_INCIDENT    = "resolved"
)

var IncidentStatusNameMap = map[string]bool{
	PENDING_INCIDENT:     true,
	IN_PROGRESS_INCIDENT: true,
	RESOLVED_INCIDENT:    true,
}

const (
	ASSAULT_INCIDENT_TYPE = "Assault/Harassment"
	ROBBERY_INCIDENT_TYPE = "Robbery/Theft"
	KIDNAP_INCIDENT_TYPE  = "Kidnapping"
	OTHER_INCIDENT_TYPE   = "Other"
)

var IncidentTypeNameMap = map[string]bool{
	ASSAULT_INCIDENT_TYPE: true,
	ROBBERY_INCIDENT_TYPE: true,
	KIDNAP_INCIDENT_TYPE:  true,
	OTHER_INCIDENT_TYPE:   true,
}

type IncidentStats struct {
	PendingCount    int64 `json:"pending_count"`
	InProgressCount int64 `json:"in_progress_count"`
	ResolvedCount   int64 `json:"resolved_count"`
}

func CurrentIncidentStats() (*IncidentStats, error) {
	stats := IncidentStats{}
	counts := map[string]*int64{
		PENDING_INCIDENT:     &stats.PendingCount,
		IN_PROGRESS_INCIDENT: &stats.InProgressCount,
		RESOLVED_INCIDENT:    &stats.ResolvedCount,
	}

	for status, count := range counts {
		err := db.Model(&IncidentReport{}).Where("status = ?", status).Count(count).Error
		if err != nil {
			return nil, err
		}
	}

	return &stats, nil
}
