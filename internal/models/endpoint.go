package models

// EndpointLanguage is the guest language of a dynamic endpoint.
type EndpointLanguage string

const (
	LanguageJavaScript EndpointLanguage = "javascript"
	LanguagePython     EndpointLanguage = "python"
)

// EndpointModel is a user-supplied dynamic handler served under /api/<slug>/...
type EndpointModel struct {
	Base
	Path       string           `json:"path"       gorm:"uniqueIndex;not null"`
	Parameters ParamList        `json:"parameters" gorm:"type:text"`
	Code       string           `json:"code"       gorm:"type:longtext;not null"`
	Language   EndpointLanguage `json:"language"   gorm:"default:javascript"`
	HTTPMethod string           `json:"httpMethod" gorm:"column:http_method;default:GET"`
	ProjectID  string           `json:"projectId"  gorm:"index;not null"`
	UserID     string           `json:"userId"     gorm:"index;not null"`
}

func (EndpointModel) TableName() string { return "endpoints" }
