package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/auth"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/service"
)

// AlumniHandler serves the public directory and profile edits.
type AlumniHandler struct {
	service *service.AlumniService
	logger  *slog.Logger
}

func NewAlumniHandler(svc *service.AlumniService, logger *slog.Logger) *AlumniHandler {
	return &AlumniHandler{service: svc, logger: logger}
}

// HandleList returns every alumnus sorted by name.
//
// HTTP: GET /alumni?batchYear=2010&house=NILGIRI
// Both query parameters are optional.
func (h *AlumniHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var filter repository.UserFilter

	q := r.URL.Query()
	if raw := q.Get("batchYear"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("batchYear", "Batch year must be a number"))
			return
		}
		filter.BatchYear = year
	}
	if raw := q.Get("house"); raw != "" {
		filter.House = model.House(strings.ToUpper(raw))
	}

	users, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleUpdateProfile edits the caller's own profile.
//
// HTTP: PUT /alumni/profile (RequireAuth)
//
// Two encodings are accepted:
//   - multipart/form-data, as the settings page sends it, with an optional
//     "profilePicture" file part and "participation[]" repeated per entry
//   - application/json with the same keys
//
// "role" and "password" are ignored in both.
func (h *AlumniHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Authentication required"))
		return
	}

	var (
		patch  model.UserPatch
		upload *service.Upload
		err    error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		patch, upload, err = parseProfileForm(w, r)
	} else {
		patch, err = parseProfileJSON(w, r)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), user.ID, patch, upload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// profileRequest is the JSON form of a profile update. Occupation and
// participation travel as flat keys and are folded into their variants;
// batchYear may be a number or a numeric string.
type profileRequest struct {
	model.UserPatch
	BatchYear           *flexInt  `json:"batchYear"`
	Occupation          *string   `json:"occupation"`
	OccupationSubField  *string   `json:"occupationSubField"`
	Participation       *[]string `json:"participation"`
	CustomParticipation *string   `json:"customParticipation"`
}

func parseProfileJSON(w http.ResponseWriter, r *http.Request) (model.UserPatch, error) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return model.UserPatch{}, err
	}

	patch := req.UserPatch
	if req.BatchYear != nil {
		year := int(*req.BatchYear)
		patch.BatchYear = &year
	}
	if req.Occupation != nil {
		patch.Occupation = &model.Occupation{Field: *req.Occupation, SubField: deref(req.OccupationSubField)}
	}
	if req.Participation != nil || req.CustomParticipation != nil {
		var categories []string
		if req.Participation != nil {
			categories = *req.Participation
		}
		patch.Participation = &model.Participation{Categories: categories, Custom: deref(req.CustomParticipation)}
	}
	return patch, nil
}

// parseProfileForm reads a multipart profile update. A field counts as
// sent when its key is present, even with an empty value; showPhoneNumber
// is always set and only the literal "true" enables it.
func parseProfileForm(w http.ResponseWriter, r *http.Request) (model.UserPatch, *service.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(service.MaxPictureBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.UserPatch{}, nil, apperror.ValidationFailed("body", "Request body too large")
		}
		return model.UserPatch{}, nil, apperror.ValidationFailed("body", "Invalid form data")
	}
	form := r.MultipartForm.Value

	var patch model.UserPatch
	patch.Name = formString(form, "name")
	patch.Email = formString(form, "email")
	patch.PhoneNumber = formString(form, "phoneNumber")
	patch.Address = formString(form, "address")
	if v := formString(form, "gender"); v != nil {
		g := model.Gender(*v)
		patch.Gender = &g
	}
	if v := formString(form, "house"); v != nil {
		h := model.House(*v)
		patch.House = &h
	}
	if v := formString(form, "batchYear"); v != nil {
		year, err := strconv.Atoi(strings.TrimSpace(*v))
		if err != nil {
			return model.UserPatch{}, nil, apperror.ValidationFailed("batchYear", "Batch year must be a number")
		}
		patch.BatchYear = &year
	}

	show := first(form["showPhoneNumber"]) == "true"
	patch.ShowPhoneNumber = &show

	if v := formString(form, "occupation"); v != nil {
		patch.Occupation = &model.Occupation{Field: *v, SubField: deref(formString(form, "occupationSubField"))}
	}

	categories, sent := form["participation[]"]
	if !sent {
		categories, sent = form["participation"]
	}
	custom := formString(form, "customParticipation")
	if sent || custom != nil {
		patch.Participation = &model.Participation{Categories: nonEmpty(categories), Custom: deref(custom)}
	}

	upload, err := readPicture(r.MultipartForm.File["profilePicture"])
	if err != nil {
		return model.UserPatch{}, nil, err
	}
	return patch, upload, nil
}

// readPicture loads the first profilePicture part. Reading stops one byte
// past the limit so the service can report "File too large" without the
// whole part being buffered.
func readPicture(files []*multipart.FileHeader) (*service.Upload, error) {
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]
	if fh.Size > service.MaxPictureBytes {
		return nil, apperror.ValidationFailed("profilePicture", "File too large")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, apperror.ValidationFailed("profilePicture", "Invalid file upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, service.MaxPictureBytes+1))
	if err != nil {
		return nil, apperror.ValidationFailed("profilePicture", "Invalid file upload")
	}
	return &service.Upload{ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func formString(form map[string][]string, key string) *string {
	values, ok := form[key]
	if !ok {
		return nil
	}
	v := first(values)
	return &v
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
