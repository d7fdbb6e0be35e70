package chi

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"

	domtrack "github.com/rikitraki/trackapi/internal/domain/track"
)

// ListParams are the query parameters of GET /tracks and GET /tracks/number.
type ListParams struct {
	Filter string
	Limit  int
	Proj   string
}

// NearbyParams are the query parameters of GET /tracks/nearby.
type NearbyParams struct {
	Lat      *float64
	Lon      *float64
	Username string
}

func bindListParams(r *http.Request) (ListParams, error) {
	var p ListParams
	q := r.URL.Query()

	var filter, proj *string
	if err := runtime.BindQueryParameter("form", true, false, "filter", q, &filter); err != nil {
		return p, fmt.Errorf("invalid format for parameter filter: %w", err)
	}
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		return p, fmt.Errorf("invalid format for parameter limit: %w", err)
	}
	if limit != nil {
		if *limit <= 0 {
			return p, errors.New("limit must be a positive integer")
		}
		p.Limit = *limit
	}
	if err := runtime.BindQueryParameter("form", true, false, "proj", q, &proj); err != nil {
		return p, fmt.Errorf("invalid format for parameter proj: %w", err)
	}
	if filter != nil {
		p.Filter = *filter
	}
	if proj != nil {
		p.Proj = *proj
	}
	return p, nil
}

// bindNearbyParams leaves Lat/Lon nil when absent; the location service
// reports missing coordinates itself.
func bindNearbyParams(r *http.Request) (NearbyParams, error) {
	var p NearbyParams
	q := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "lat", q, &p.Lat); err != nil {
		return p, fmt.Errorf("invalid format for parameter lat: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "lon", q, &p.Lon); err != nil {
		return p, fmt.Errorf("invalid format for parameter lon: %w", err)
	}
	var username *string
	if err := runtime.BindQueryParameter("form", true, false, "username", q, &username); err != nil {
		return p, fmt.Errorf("invalid format for parameter username: %w", err)
	}
	if username != nil {
		p.Username = *username
	}
	return p, nil
}

// CreateTrackRequest is the body of POST /tracks. The owner comes from the
// authenticated caller, never from the body.
type CreateTrackRequest struct {
	LatLng      *[2]float64 `json:"trackLatLng" validate:"required"`
	Name        string      `json:"trackName" validate:"required,max=256"`
	Description string      `json:"trackDescription" validate:"max=4096"`
	Type        string      `json:"trackType" validate:"max=64"`
	Level       string      `json:"trackLevel" validate:"max=64"`
	Favorite    bool        `json:"trackFav"`
	RegionTags  []string    `json:"trackRegionTags" validate:"min=1,dive,required"`
	HasPhotos   bool        `json:"hasPhotos"`
}

func (req *CreateTrackRequest) toInput(username string) domtrack.Input {
	return domtrack.Input{
		Username:    username,
		Name:        req.Name,
		Description: req.Description,
		LatLng:      domtrack.LatLng{Lat: req.LatLng[0], Lon: req.LatLng[1]},
		Type:        req.Type,
		Level:       req.Level,
		Favorite:    req.Favorite,
		RegionTags:  req.RegionTags,
		HasPhotos:   req.HasPhotos,
	}
}

// UpdateTrackRequest is the body of PATCH/PUT /tracks/{trackId}. Absent
// fields keep their stored value; trackLatLng is not editable.
type UpdateTrackRequest struct {
	Name        *string  `json:"trackName" validate:"omitempty,min=1,max=256"`
	Description *string  `json:"trackDescription" validate:"omitempty,max=4096"`
	Type        *string  `json:"trackType" validate:"omitempty,max=64"`
	Level       *string  `json:"trackLevel" validate:"omitempty,max=64"`
	Favorite    *bool    `json:"trackFav"`
	RegionTags  []string `json:"trackRegionTags" validate:"omitempty,min=1,dive,required"`
}

func (req *UpdateTrackRequest) toPatch() domtrack.Patch {
	return domtrack.Patch{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Level:       req.Level,
		Favorite:    req.Favorite,
		RegionTags:  req.RegionTags,
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON names so messages match the request body.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		validate.RegisterStructValidation(validateLatLng, CreateTrackRequest{})
	})
	return validate
}

func validateLatLng(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateTrackRequest)
	if req.LatLng == nil {
		return
	}
	lat, lon := req.LatLng[0], req.LatLng[1]
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		sl.ReportError(req.LatLng, "trackLatLng", "LatLng", "latlng", "")
	}
}

// validateRequest runs struct validation and flattens the failures into one
// client-facing message.
func validateRequest(req any) error {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must contain at least %s entry", field, fe.Param())
	case "latlng":
		return field + " must be [lat, lon] within [-90,90] and [-180,180]"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
