package tbo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// The supplier's destination records are inconsistent about field names; every
// observed combination must normalize.
func TestDestinationListFieldVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("UserName") != "static-user" || q.Get("Password") != "static-pass" {
			t.Errorf("missing static credentials in query: %v", q)
		}
		if q.Get("CountryCode") != "AE" {
			t.Errorf("CountryCode = %q, want AE", q.Get("CountryCode"))
		}

		w.Write([]byte(`{"Status":1,"Cities":[
			{"CityName":"Dubai","Id":115936},
			{"Name":"Abu Dhabi","Code":"100765"},
			{"Destination":"Sharjah","DestinationId":111111},
			{"CityName":"","Id":0}
		]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	list, err := client.DestinationList(context.Background(), "AE")
	if err != nil {
		t.Fatalf("DestinationList failed: %v", err)
	}

	want := []Destination{
		{ID: 115936, Name: "Dubai"},
		{ID: 100765, Name: "Abu Dhabi"},
		{ID: 111111, Name: "Sharjah"},
	}
	if len(list) != len(want) {
		t.Fatalf("got %d destinations, want %d: %+v", len(list), len(want), list)
	}
	for i, d := range want {
		if list[i] != d {
			t.Errorf("destination %d = %+v, want %+v", i, list[i], d)
		}
	}
}

func TestResolveDestination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":1,"Cities":[
			{"CityName":"Greater Noida","Id":10},
			{"CityName":"Noida","Id":20}
		]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	ctx := context.Background()

	// Substring containment, first match wins.
	d, err := client.ResolveDestination(ctx, "Noida", "IN")
	if err != nil {
		t.Fatalf("ResolveDestination failed: %v", err)
	}
	if d.ID != 10 {
		t.Errorf("resolved id = %d, want first match 10", d.ID)
	}

	// Matching is case-sensitive.
	if _, err := client.ResolveDestination(ctx, "noida", "IN"); !errors.Is(err, ErrDestinationNotFound) {
		t.Errorf("case-insensitive match should not resolve, got %v", err)
	}

	if _, err := client.ResolveDestination(ctx, "Atlantis", "IN"); !errors.Is(err, ErrDestinationNotFound) {
		t.Errorf("err = %v, want ErrDestinationNotFound", err)
	}
}

func TestDestinationListUsesCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"Status":1,"Cities":[{"CityName":"Dubai","Id":115936}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, newTestCache(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := client.DestinationList(ctx, "AE"); err != nil {
			t.Fatalf("DestinationList call %d failed: %v", i+1, err)
		}
	}
	if hits != 1 {
		t.Errorf("expected a single upstream call, got %d", hits)
	}
}
