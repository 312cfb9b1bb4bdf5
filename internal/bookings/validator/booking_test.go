package validator

import (
	"testing"

	"expobook/pkg/logger"
	"expobook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidateRequest(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	tests := []struct {
		name    string
		req     model.BookingRequest
		wantErr bool
	}{
		{"small booth", model.BookingRequest{BoothType: model.BoothSmall, Amount: 1}, false},
		{"big booth", model.BookingRequest{BoothType: model.BoothBig, Amount: 6}, false},
		{"unknown booth type", model.BookingRequest{BoothType: "medium", Amount: 1}, true},
		{"missing booth type", model.BookingRequest{Amount: 1}, true},
		{"zero amount", model.BookingRequest{BoothType: model.BoothSmall}, true},
		{"negative amount", model.BookingRequest{BoothType: model.BoothSmall, Amount: -2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := NewBookingValidator(logger.Discard())
	big := model.BoothBig
	bogus := model.BoothType("huge")
	three := 3
	zero := 0

	tests := []struct {
		name    string
		update  model.BookingUpdate
		wantErr bool
	}{
		{"booth type only", model.BookingUpdate{BoothType: &big}, false},
		{"amount only", model.BookingUpdate{Amount: &three}, false},
		{"both", model.BookingUpdate{BoothType: &big, Amount: &three}, false},
		{"empty update", model.BookingUpdate{}, true},
		{"bad booth type", model.BookingUpdate{BoothType: &bogus}, true},
		{"zero amount", model.BookingUpdate{Amount: &zero}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpdate(&tt.update)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Booking(t *testing.T) {
	v := NewBookingValidator(logger.Discard())
	valid := model.Booking{
		UserID:       primitive.NewObjectID().Hex(),
		ExhibitionID: primitive.NewObjectID().Hex(),
		BoothType:    model.BoothSmall,
		Amount:       2,
	}

	if err := v.Validate(&valid); err != nil {
		t.Fatalf("expected valid booking, got %v", err)
	}

	overCap := valid
	overCap.Amount = model.MaxBoothsPerUser + 1
	err := v.Validate(&overCap)
	if err == nil {
		t.Fatal("expected amount above the cap to fail")
	}
	errs, ok := err.(ValidationErrors)
	if !ok || len(errs) != 1 || errs[0].Field != "Amount" {
		t.Errorf("expected a single Amount error, got %v", err)
	}

	badOwner := valid
	badOwner.UserID = "not-an-id"
	if err := v.Validate(&badOwner); err == nil {
		t.Error("expected malformed user id to fail")
	}
}
