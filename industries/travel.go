package industries

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tailored-agentic-units/callcenter/store"
	"github.com/tailored-agentic-units/callcenter/tools"
)

const (
	defaultMaxDistanceKm = 50
	dateLayout           = "2006-01-02"
	refAlphabet          = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func travelTools(deps Deps) ([]tool, error) {
	bookings, err := table(deps, store.TableBookings)
	if err != nil {
		return nil, err
	}
	vehicles, err := table(deps, store.TableVehicles)
	if err != nil {
		return nil, err
	}
	accommodation, err := table(deps, store.TableAccommodation)
	if err != nil {
		return nil, err
	}

	t := &travel{deps: deps, bookings: bookings, vehicles: vehicles, accommodation: accommodation}

	return []tool{
		{
			def: tools.Definition{
				Name:        "customerLookup",
				Description: "Looks up customer information by booking reference, contact phone, or vehicle registration.",
				Parameters: []tools.Parameter{
					{Name: "identifier", Type: tools.TypeString, Required: true,
						Description: "Booking reference, contact phone, or vehicle registration number provided by customer"},
					{Name: "identifier_type", Type: tools.TypeString, Required: true,
						Description: "Type of identifier",
						Enum:        []string{"booking_ref", "contact_phone", "vehicle_reg"}},
				},
			},
			handler: t.customerLookup,
		},
		{
			def: tools.Definition{
				Name:        "bookingManager",
				Description: "Manages bookings: creates, modifies, or cancels accommodation bookings.",
				Parameters: []tools.Parameter{
					{Name: "action", Type: tools.TypeString, Required: true,
						Description: "Action to perform", Enum: []string{"create", "modify", "cancel"}},
					{Name: "booking_ref", Type: tools.TypeString, Description: "Booking reference for modifications or cancellations"},
					{Name: "customer_name", Type: tools.TypeString, Description: "Customer's full name"},
					{Name: "contact_phone", Type: tools.TypeString, Description: "Customer's contact phone number"},
					{Name: "customer_booking_ref", Type: tools.TypeString, Description: "Customer's rental booking reference"},
					{Name: "accommodation_id", Type: tools.TypeString, Description: "ID of the accommodation to book"},
					{Name: "trip_start", Type: tools.TypeString, Description: "Trip start date (YYYY-MM-DD)"},
					{Name: "trip_end", Type: tools.TypeString, Description: "Trip end date (YYYY-MM-DD)"},
					{Name: "site_type", Type: tools.TypeString, Description: "Type of site (powered, unpowered, cabin)"},
					{Name: "vehicle_reg", Type: tools.TypeString, Description: "Vehicle registration number"},
					{Name: "num_guests", Type: tools.TypeInteger, Description: "Number of guests for the booking"},
					{Name: "special_requests", Type: tools.TypeString, Description: "Any special requests for the booking"},
				},
			},
			handler: t.bookingManager,
		},
		{
			def: tools.Definition{
				Name:        "accommodationFinder",
				Description: "Finds available accommodation options near a location.",
				Parameters: []tools.Parameter{
					{Name: "location", Type: tools.TypeString, Required: true, Description: "Location to search near"},
					{Name: "family_friendly", Type: tools.TypeBoolean, Description: "Whether accommodation should be family-friendly"},
					{Name: "powered_site", Type: tools.TypeBoolean, Description: "Whether powered sites are required"},
					{Name: "pet_friendly", Type: tools.TypeBoolean, Description: "Whether accommodation should be pet-friendly"},
					{Name: "max_distance", Type: tools.TypeNumber, Description: "Maximum distance in kilometers to search (default is 50km)"},
				},
			},
			handler: t.accommodationFinder,
		},
		{
			def: tools.Definition{
				Name:        "applianceTroubleshooting",
				Description: "Provides troubleshooting steps for common campervan appliance issues.",
				Parameters: []tools.Parameter{
					{Name: "appliance_type", Type: tools.TypeString, Required: true,
						Description: "Type of appliance (fridge, stove, heater, water_pump, power_system)"},
					{Name: "issue_description", Type: tools.TypeString, Required: true, Description: "Description of the issue"},
					{Name: "vehicle_model", Type: tools.TypeString, Description: "Model of the campervan"},
				},
			},
			handler: applianceTroubleshooting,
		},
	}, nil
}

type travel struct {
	deps          Deps
	bookings      store.Store
	vehicles      store.Store
	accommodation store.Store
}

func (t *travel) customerLookup(ctx context.Context, args tools.Arguments) tools.Result {
	id := args.String("identifier")

	var (
		customer store.Record
		vehicle  store.Record
	)

	switch kind := args.String("identifier_type"); kind {
	case "contact_phone", "booking_ref":
		recs, err := t.bookings.Query(ctx, kind, id)
		if err != nil {
			return storeFailure(err)
		}
		if len(recs) == 0 {
			return notFound()
		}
		customer = recs[0]

		if reg := customer.String("vehicle_reg"); reg != "" {
			if v, err := t.vehicles.Get(ctx, store.Key{Partition: reg}); err == nil {
				vehicle = v
			}
		}

	case "vehicle_reg":
		v, err := t.vehicles.Get(ctx, store.Key{Partition: id})
		if err != nil {
			return storeFailure(err)
		}
		vehicle = v

		recs, err := t.bookings.Query(ctx, "vehicle_reg", id)
		if err != nil {
			return storeFailure(err)
		}
		if len(recs) == 0 {
			return notFound()
		}
		customer = recs[0]

	default:
		return tools.Failf("invalid identifier type: %s", kind)
	}

	return tools.OK(map[string]any{
		"customer": customer,
		"vehicle":  vehicle,
	})
}

func (t *travel) bookingManager(ctx context.Context, args tools.Arguments) tools.Result {
	switch action := args.String("action"); action {
	case "create":
		return t.createBooking(ctx, args)
	case "modify", "cancel":
		if args.String("booking_ref") == "" {
			return tools.Failf("booking reference required for %s", action)
		}
		return tools.Failf("booking %s is not yet supported", action)
	default:
		return tools.Failf("invalid action: %s", action)
	}
}

func (t *travel) createBooking(ctx context.Context, args tools.Arguments) tools.Result {
	var missing []string
	for _, f := range []string{"contact_phone", "accommodation_id", "trip_start", "trip_end"} {
		if args.String(f) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return tools.Failf("missing required fields: %s", strings.Join(missing, ", "))
	}

	start, err := time.Parse(dateLayout, args.String("trip_start"))
	if err != nil {
		return tools.Failf("trip_start must be a date in YYYY-MM-DD format")
	}
	end, err := time.Parse(dateLayout, args.String("trip_end"))
	if err != nil {
		return tools.Failf("trip_end must be a date in YYYY-MM-DD format")
	}
	if end.Before(start) {
		return tools.Failf("trip_end is before trip_start")
	}

	accID := args.String("accommodation_id")
	acc, err := t.accommodation.Get(ctx, store.Key{Partition: accID})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return tools.Failf("accommodation with ID %s not found", accID)
		}
		return storeFailure(err)
	}

	now := t.deps.now()
	ref := bookingRef(now)

	item := store.Record{
		"booking_ref":            ref,
		"contact_phone":          args.String("contact_phone"),
		"accommodation_id":       accID,
		"accommodation_name":     orDefault(acc.String("name"), "Unknown Accommodation"),
		"accommodation_location": orDefault(acc.String("location"), "Unknown Location"),
		"trip_start":             args.String("trip_start"),
		"trip_end":               args.String("trip_end"),
		"status":                 "confirmed",
		"created_at":             now.Format(time.RFC3339),
	}
	for _, f := range []string{"customer_name", "site_type", "vehicle_reg", "customer_booking_ref", "special_requests"} {
		if v := args.String(f); v != "" {
			item[f] = v
		}
	}
	if args.Has("num_guests") {
		n, ok := args.Int("num_guests")
		if !ok || n < 1 {
			return tools.Failf("num_guests must be a positive whole number")
		}
		item["num_guests"] = n
	}

	if err := t.bookings.Put(ctx, item); err != nil {
		return storeFailure(err)
	}

	return tools.OK(map[string]any{
		"booking_ref": ref,
		"message":     "Booking created successfully",
		"details":     item,
	})
}

// bookingRef returns a reference of the form THL-YYYYMMDD-XXXXX.
func bookingRef(now time.Time) string {
	var b strings.Builder
	b.WriteString("THL-")
	b.WriteString(now.Format("20060102"))
	b.WriteByte('-')
	for range 5 {
		b.WriteByte(refAlphabet[rand.IntN(len(refAlphabet))])
	}
	return b.String()
}

func (t *travel) accommodationFinder(ctx context.Context, args tools.Arguments) tools.Result {
	location := args.String("location")
	maxDistance := float64(defaultMaxDistanceKm)
	if d, ok := args.Float("max_distance"); ok && d > 0 {
		maxDistance = d
	}

	all, err := t.accommodation.Scan(ctx)
	if err != nil {
		return storeFailure(err)
	}

	var candidates []store.Record
	for _, acc := range all {
		if accommodationMatches(acc, args) {
			candidates = append(candidates, acc)
		}
	}

	var found []store.Record
	needle := strings.ToLower(location)
	for _, acc := range candidates {
		if strings.Contains(strings.ToLower(acc.String("location")), needle) {
			found = append(found, acc)
		}
	}

	if len(found) == 0 {
		origin, ok := locate(location)
		if !ok {
			return tools.Failf("could not find coordinates for location: %s", location)
		}
		found = nearby(candidates, origin, maxDistance)
	}

	if len(found) == 0 {
		return tools.Failf("no accommodation options found matching your criteria near %s", location)
	}

	out := make([]map[string]any, 0, len(found))
	for _, acc := range found {
		out = append(out, formatAccommodation(acc))
	}
	return tools.OK(map[string]any{"accommodations": out})
}

func accommodationMatches(acc store.Record, args tools.Arguments) bool {
	for _, attr := range []string{"family_friendly", "pet_friendly"} {
		if want, ok := args.Bool(attr); ok {
			if have, _ := acc[attr].(bool); have != want {
				return false
			}
		}
	}
	if powered, ok := args.Bool("powered_site"); ok && powered {
		if n, _ := acc["powered_sites_available"].(float64); n <= 0 {
			return false
		}
	}
	return true
}

// nearby returns records with coordinates within maxKm of origin, nearest
// first, annotated with distance_km.
func nearby(recs []store.Record, origin coord, maxKm float64) []store.Record {
	var out []store.Record
	for _, acc := range recs {
		lat, ok1 := number(acc["latitude"])
		lon, ok2 := number(acc["longitude"])
		if !ok1 || !ok2 {
			continue
		}

		d := haversine(origin, coord{lat, lon})
		if d > maxKm {
			continue
		}
		acc = acc.Clone()
		acc["distance_km"] = math.Round(d*10) / 10
		out = append(out, acc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i]["distance_km"].(float64) < out[j]["distance_km"].(float64)
	})
	return out
}

func formatAccommodation(acc store.Record) map[string]any {
	out := map[string]any{
		"id":              acc["id"],
		"name":            acc["name"],
		"location":        acc["location"],
		"type":            acc["type"],
		"price_range":     acc["price_range"],
		"family_friendly": acc["family_friendly"],
		"pet_friendly":    acc["pet_friendly"],
		"amenities":       acc["amenities"],
	}
	for _, k := range []string{"powered_sites_available", "unpowered_sites_available", "cabins_available", "distance_km"} {
		if v, ok := acc[k]; ok {
			out[k] = v
		}
	}
	return out
}

func applianceTroubleshooting(_ context.Context, args tools.Arguments) tools.Result {
	appliance := strings.ToLower(args.String("appliance_type"))
	issues, ok := guides[appliance]
	if !ok {
		return tools.Failf("invalid appliance type: %s. Must be one of: %s", appliance, strings.Join(appliances, ", "))
	}

	desc := strings.ToLower(args.String("issue_description"))
	match := issues[0]
	for _, g := range issues {
		if strings.Contains(desc, g.issue) || strings.Contains(desc, strings.ReplaceAll(g.issue, "_", " ")) {
			match = g
			break
		}
	}

	var modelInfo any
	if model := args.String("vehicle_model"); model != "" {
		modelInfo = fmt.Sprintf("These steps are general guidelines for all campervans. Your %s may have specific features, please refer to the vehicle manual for detailed instructions.", model)
	}

	return tools.OK(map[string]any{
		"appliance":             appliance,
		"issue":                 match.issue,
		"troubleshooting_steps": match.steps,
		"model_specific_info":   modelInfo,
	})
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.Trim(n, `"`), 64)
		return f, err == nil
	}
	return 0, false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
