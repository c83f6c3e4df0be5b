package geo

import (
	"context"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestHaversineKm(t *testing.T) {
	t.Parallel()

	// Jakarta to Surabaya, roughly 663 km great-circle.
	jakarta := Point{Latitude: -6.2088, Longitude: 106.8456}
	surabaya := Point{Latitude: -7.2575, Longitude: 112.7521}

	got := HaversineKm(jakarta, surabaya)
	if math.Abs(got-663) > 10 {
		t.Fatalf("HaversineKm = %.1f, want about 663", got)
	}

	if d := HaversineKm(jakarta, jakarta); d != 0 {
		t.Fatalf("distance to self = %f, want 0", d)
	}
}

func TestRoutingClientDistanceKm(t *testing.T) {
	t.Parallel()

	respBody := `{"code":"Ok","routes":[{"distance":12500.0}]}`
	var capturedURL string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     make(http.Header),
		}, nil
	})

	client := NewRoutingClient(
		WithBaseURL("http://routing.test"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)

	km, err := client.DistanceKm(context.Background(), Point{Latitude: -6.2, Longitude: 106.8}, Point{Latitude: -6.9, Longitude: 107.6})
	if err != nil {
		t.Fatalf("DistanceKm returned error: %v", err)
	}
	if km != 12.5 {
		t.Fatalf("DistanceKm = %f, want 12.5", km)
	}
	if !strings.HasPrefix(capturedURL, "http://routing.test/route/v1/driving/") {
		t.Fatalf("unexpected request url %q", capturedURL)
	}
}

func TestRoutingClientNoRoute(t *testing.T) {
	t.Parallel()

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"code":"NoRoute","routes":[]}`)),
			Header:     make(http.Header),
		}, nil
	})

	client := NewRoutingClient(
		WithBaseURL("http://routing.test"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)

	if _, err := client.DistanceKm(context.Background(), Point{}, Point{}); err == nil {
		t.Fatal("expected error for missing route")
	}
}

func TestFallbackResolverDegradesToHaversine(t *testing.T) {
	t.Parallel()

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Body:       io.NopCloser(strings.NewReader("down")),
			Header:     make(http.Header),
		}, nil
	})

	resolver := FallbackResolver{Primary: NewRoutingClient(
		WithBaseURL("http://routing.test"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)}

	origin := Point{Latitude: -6.2088, Longitude: 106.8456}
	dest := Point{Latitude: -6.9175, Longitude: 107.6191}

	km, err := resolver.DistanceKm(context.Background(), origin, dest)
	if err != nil {
		t.Fatalf("DistanceKm returned error: %v", err)
	}
	want := HaversineKm(origin, dest)
	if km != want {
		t.Fatalf("DistanceKm = %f, want haversine %f", km, want)
	}
}
