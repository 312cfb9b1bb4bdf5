package validator

import (
	"errors"
	"testing"
	"time"

	"expobook/pkg/logger"
	"expobook/pkg/model"
)

func validExhibition() *model.Exhibition {
	return &model.Exhibition{
		Name:            "Tech Expo",
		Description:     "Annual technology fair",
		Venue:           "Hall 4",
		StartDate:       model.NewDate(2030, time.May, 1),
		DurationDay:     3,
		SmallBoothQuota: 10,
		BigBoothQuota:   0,
		PosterPicture:   "https://example.com/poster.png",
	}
}

func TestValidate(t *testing.T) {
	v := NewExhibitionValidator(logger.Discard())

	tests := []struct {
		name      string
		mutate    func(e *model.Exhibition)
		wantField string
	}{
		{"valid", func(e *model.Exhibition) {}, ""},
		{"zero big quota allowed", func(e *model.Exhibition) { e.SmallBoothQuota = 0 }, ""},
		{"missing name", func(e *model.Exhibition) { e.Name = "" }, "Name"},
		{"missing start date", func(e *model.Exhibition) { e.StartDate = model.Date{} }, "StartDate"},
		{"zero duration", func(e *model.Exhibition) { e.DurationDay = 0 }, "DurationDay"},
		{"negative small quota", func(e *model.Exhibition) { e.SmallBoothQuota = -1 }, "SmallBoothQuota"},
		{"negative big quota", func(e *model.Exhibition) { e.BigBoothQuota = -2 }, "BigBoothQuota"},
		{"poster not a url", func(e *model.Exhibition) { e.PosterPicture = "poster" }, "PosterPicture"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validExhibition()
			tt.mutate(e)
			err := v.Validate(e)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, verrs[0].Field)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := NewExhibitionValidator(logger.Discard())

	if err := v.ValidateUpdate(&model.ExhibitionUpdate{}); err == nil {
		t.Error("empty update should be rejected")
	}

	negative := -1
	if err := v.ValidateUpdate(&model.ExhibitionUpdate{BigBoothQuota: &negative}); err == nil {
		t.Error("negative quota should be rejected")
	}

	venue := "Hall 7"
	if err := v.ValidateUpdate(&model.ExhibitionUpdate{Venue: &venue}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
