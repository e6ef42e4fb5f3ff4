package models

// ChartTypeCount is one bucket of the chart type popularity ranking.
type ChartTypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Stats is the admin usage summary.
type Stats struct {
	TotalUsersLoggedIn int              `json:"totalUsersLoggedIn"`
	TotalFilesUploaded int              `json:"totalFilesUploaded"`
	MostUsedChartTypes []ChartTypeCount `json:"mostUsedChartTypes"`
}
