package dto

// SupervisorDashboardResponse aggregates supervision workload metrics.
type SupervisorDashboardResponse struct {
	TotalProjects    int            `json:"total_projects"`
	ProjectsByStatus map[string]int `json:"projects_by_status"`
	StagesAwaiting   int            `json:"stages_awaiting_review"`
	OverdueStages    int            `json:"overdue_stages"`
	UnpaidFines      int            `json:"unpaid_fines"`
	OutstandingFines float64        `json:"outstanding_fine_amount"`
}
