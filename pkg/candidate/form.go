package candidate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Form field identifiers. They double as keys in the error map.
const (
	FieldFullName       = "fullName"
	FieldEmail          = "email"
	FieldPhone          = "phone"
	FieldAreaOfInterest = "areaOfInterest"
	FieldExperience     = "experience"
	FieldCoverLetter    = "coverLetter"
)

var (
	formEmailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	formPhoneRe = regexp.MustCompile(`^\(\d{2}\) \d{4,5}-\d{4}$`)
	digitsRe    = regexp.MustCompile(`\D`)
)

// FormData is the serializable state of the application form. The resume
// payload itself is never persisted, only its file name.
type FormData struct {
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	AreaOfInterest string `json:"areaOfInterest"`
	Experience     string `json:"experience"`
	CoverLetter    string `json:"coverLetter"`
	ResumeName     string `json:"resumeName,omitempty"`
	PrivacyConsent bool   `json:"privacyConsent"`
}

// ApplicationForm drives the job-application form: field state, validation,
// persistence across reloads and submission.
type ApplicationForm struct {
	Data           FormData
	Errors         map[string]string
	Submitting     bool
	HasError       bool
	UploadProgress int

	resume *Resume
	client *Client
	store  TabStore
}

// NewApplicationForm constructs a form bound to a client and a per-tab
// store, restoring any state persisted by a previous page load.
func NewApplicationForm(client *Client, store TabStore) *ApplicationForm {
	f := &ApplicationForm{
		Errors: make(map[string]string),
		client: client,
		store:  store,
	}
	f.restore()
	return f
}

// FormatPhone applies the national phone mask to raw input. Non-digits are
// stripped and input is capped at eleven digits; the mask grows with the
// number of digits typed.
func FormatPhone(raw string) string {
	digits := digitsRe.ReplaceAllString(raw, "")
	if len(digits) > 11 {
		digits = digits[:11]
	}
	switch {
	case len(digits) == 0:
		return ""
	case len(digits) <= 2:
		return "(" + digits
	case len(digits) <= 6:
		return fmt.Sprintf("(%s) %s", digits[:2], digits[2:])
	case len(digits) <= 10:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:6], digits[6:])
	default:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:7], digits[7:])
	}
}

// SetField updates one text field. Phone input is run through the mask.
// State is persisted after every change.
func (f *ApplicationForm) SetField(field, value string) {
	switch field {
	case FieldFullName:
		f.Data.FullName = value
	case FieldEmail:
		f.Data.Email = value
	case FieldPhone:
		f.Data.Phone = FormatPhone(value)
	case FieldAreaOfInterest:
		f.Data.AreaOfInterest = value
	case FieldExperience:
		f.Data.Experience = value
	case FieldCoverLetter:
		f.Data.CoverLetter = value
	default:
		return
	}
	delete(f.Errors, field)
	f.persist()
}

// SetConsent records the privacy-consent checkbox.
func (f *ApplicationForm) SetConsent(consent bool) {
	f.Data.PrivacyConsent = consent
	delete(f.Errors, "privacyConsent")
	f.persist()
}

// AttachResume sets the selected resume file.
func (f *ApplicationForm) AttachResume(resume *Resume) {
	f.resume = resume
	if resume != nil {
		f.Data.ResumeName = resume.Name
		delete(f.Errors, "resume")
	} else {
		f.Data.ResumeName = ""
	}
	f.persist()
}

// Resume returns the attached resume, if any.
func (f *ApplicationForm) Resume() *Resume {
	return f.resume
}

// ValidateField validates one field and records its error message. It
// returns the message, empty when the field is valid.
func (f *ApplicationForm) ValidateField(field string) string {
	var message string
	switch field {
	case FieldFullName:
		if strings.TrimSpace(f.Data.FullName) == "" {
			message = "required field"
		}
	case FieldEmail:
		if strings.TrimSpace(f.Data.Email) == "" {
			message = "required field"
		} else if !formEmailRe.MatchString(strings.TrimSpace(f.Data.Email)) {
			message = "invalid email"
		}
	case FieldPhone:
		if strings.TrimSpace(f.Data.Phone) == "" {
			message = "required field"
		} else if !formPhoneRe.MatchString(f.Data.Phone) {
			message = "invalid phone"
		}
	case FieldAreaOfInterest:
		if strings.TrimSpace(f.Data.AreaOfInterest) == "" {
			message = "required field"
		}
	case FieldExperience:
		if strings.TrimSpace(f.Data.Experience) == "" {
			message = "required field"
		}
	case "resume":
		if f.resume == nil {
			message = "required field"
		}
	case "privacyConsent":
		if !f.Data.PrivacyConsent {
			message = "consent required"
		}
	}

	if message == "" {
		delete(f.Errors, field)
	} else {
		f.Errors[field] = message
	}
	return message
}

// Validate validates every field and reports whether the form is
// submittable. The error map afterwards holds exactly the invalid fields.
func (f *ApplicationForm) Validate() bool {
	fields := []string{FieldFullName, FieldEmail, FieldPhone, FieldAreaOfInterest, FieldExperience, "resume", "privacyConsent"}
	valid := true
	for _, field := range fields {
		if f.ValidateField(field) != "" {
			valid = false
		}
	}
	return valid
}

// Submit validates and submits the application. On success the candidate id
// is persisted for the profile test and the form state is cleared. Failure
// keeps the entered state so the candidate can retry.
func (f *ApplicationForm) Submit(ctx context.Context) bool {
	if !f.Validate() {
		return false
	}

	f.Submitting = true
	f.HasError = false
	defer func() { f.Submitting = false }()

	application := Application{
		FullName:        strings.TrimSpace(f.Data.FullName),
		Email:           strings.TrimSpace(f.Data.Email),
		Phone:           f.Data.Phone,
		PositionApplied: f.Data.AreaOfInterest,
		Experience:      f.Data.Experience,
		CoverLetter:     f.Data.CoverLetter,
		PrivacyConsent:  f.Data.PrivacyConsent,
	}

	candidateID, errSubmit := f.client.SubmitApplication(ctx, application, f.resume, func(percent int) {
		f.UploadProgress = percent
	})
	if errSubmit != nil {
		f.HasError = true
		return false
	}

	if f.store != nil {
		f.store.Set(candidateIDKey, candidateID)
	}
	f.Clear()
	return true
}

// CandidateID returns the candidate id persisted by a successful submission.
func (f *ApplicationForm) CandidateID() string {
	if f.store == nil {
		return ""
	}
	id, _ := f.store.Get(candidateIDKey)
	return id
}

// Clear resets the form and removes persisted form state.
func (f *ApplicationForm) Clear() {
	f.Data = FormData{}
	f.Errors = make(map[string]string)
	f.resume = nil
	f.UploadProgress = 0
	if f.store != nil {
		f.store.Remove(formStateKey)
	}
}

func (f *ApplicationForm) persist() {
	if f.store == nil {
		return
	}
	data, errMarshal := json.Marshal(f.Data)
	if errMarshal != nil {
		return
	}
	f.store.Set(formStateKey, string(data))
}

func (f *ApplicationForm) restore() {
	if f.store == nil {
		return
	}
	raw, ok := f.store.Get(formStateKey)
	if !ok {
		return
	}
	var data FormData
	if errParse := json.Unmarshal([]byte(raw), &data); errParse != nil {
		f.store.Remove(formStateKey)
		return
	}
	f.Data = data
}
