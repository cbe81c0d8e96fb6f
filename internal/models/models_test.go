package models

import "testing"

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}
}

func TestBaseModelBeforeCreateKeepsExistingID(t *testing.T) {
	base := BaseModel{ID: "fixed"}
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID != "fixed" {
		t.Fatalf("expected ID to be preserved, got %q", base.ID)
	}
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"user", func() *BaseModel {
			u := &User{}
			return &u.BaseModel
		}},
		{"venue", func() *BaseModel {
			v := &Venue{}
			return &v.BaseModel
		}},
		{"event", func() *BaseModel {
			e := &Event{}
			return &e.BaseModel
		}},
		{"event_comment", func() *BaseModel {
			c := &EventComment{}
			return &c.BaseModel
		}},
		{"venue_comment", func() *BaseModel {
			c := &VenueComment{}
			return &c.BaseModel
		}},
		{"event_like", func() *BaseModel {
			l := &EventLike{}
			return &l.BaseModel
		}},
		{"venue_like", func() *BaseModel {
			l := &VenueLike{}
			return &l.BaseModel
		}},
		{"chat_room", func() *BaseModel {
			r := &ChatRoom{}
			return &r.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := tc.model()
			if err := base.BeforeCreate(nil); err != nil {
				t.Fatalf("before create: %v", err)
			}
			if base.ID == "" {
				t.Fatal("expected generated ID")
			}
		})
	}
}
