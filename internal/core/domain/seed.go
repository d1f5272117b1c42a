package domain

// SeedData is the initial data applied by the deploy step
type SeedData struct {
	Roles     []Role        `json:"Role"`
	Insurance UploadPayload `json:"Insurance"`
}
