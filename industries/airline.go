package industries

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/tailored-agentic-units/callcenter/store"
	"github.com/tailored-agentic-units/callcenter/tools"
)

const (
	departureLayout = "2006-01-02 15:04"
	mealCutoff      = 24 * time.Hour
)

func airlineTools(deps Deps) ([]tool, error) {
	flights, err := table(deps, store.TableFlights)
	if err != nil {
		return nil, err
	}

	a := &airline{deps: deps, flights: flights}
	ref := tools.Parameter{
		Name:        "booking_reference",
		Type:        tools.TypeString,
		Description: "The user's booking reference",
		Required:    true,
	}

	return []tool{
		{
			def: tools.Definition{
				Name:        "userProfileByBookingReference",
				Description: "Retrieves a user's profile, including account and upcoming flight details, using their booking reference.",
				Parameters:  []tools.Parameter{ref},
			},
			handler: a.profileByBookingReference,
		},
		{
			def: tools.Definition{
				Name:        "userProfileByFrequentFlyerNumber",
				Description: "Retrieves a user's profile and upcoming flights using their frequent flyer number.",
				Parameters: []tools.Parameter{
					{Name: "frequent_flyer_number", Type: tools.TypeString, Required: true, Description: "The user's frequent flyer number"},
				},
			},
			handler: a.profileByFrequentFlyer,
		},
		{
			def: tools.Definition{
				Name:        "userProfileByCustomerId",
				Description: "Retrieves a user's profile, including account and upcoming flight details, using their customer ID.",
				Parameters: []tools.Parameter{
					{Name: "customer_id", Type: tools.TypeString, Required: true, Description: "The user's customer ID"},
				},
			},
			handler: a.profileByCustomerID,
		},
		{
			def: tools.Definition{
				Name:        "requestSpecialMeal",
				Description: "Request a special meal for a flight, or change a meal already ordered.",
				Parameters: []tools.Parameter{
					ref,
					{Name: "meal_type", Type: tools.TypeString, Required: true, Description: "The type of special meal requested"},
				},
			},
			handler: a.requestSpecialMeal,
		},
		{
			def: tools.Definition{
				Name:        "createSupportTicket",
				Description: "Creates a support ticket for an issue raised by the user against their booking.",
				Parameters: []tools.Parameter{
					ref,
					{Name: "issue_summary", Type: tools.TypeString, Required: true, Description: "A summary of the issue raised by the user"},
				},
			},
			handler: a.createSupportTicket,
		},
	}, nil
}

type airline struct {
	deps    Deps
	flights store.Store
}

// normalizeReference strips the separators callers speak or type and
// upper-cases the result.
func normalizeReference(ref string) string {
	r := strings.NewReplacer(" ", "", "-", "", ".", "")
	return strings.ToUpper(r.Replace(ref))
}

// byReference returns the flight records of a booking, wrapping
// store.ErrNotFound when there are none.
func (a *airline) byReference(ctx context.Context, raw string) ([]store.Record, string, error) {
	ref := normalizeReference(raw)
	recs, err := a.flights.Query(ctx, "bookingReference", ref)
	if err != nil {
		return nil, ref, err
	}
	if len(recs) == 0 {
		return nil, ref, fmt.Errorf("%w: booking reference %s", store.ErrNotFound, ref)
	}
	return recs, ref, nil
}

func (a *airline) profileByBookingReference(ctx context.Context, args tools.Arguments) tools.Result {
	recs, _, err := a.byReference(ctx, args.String("booking_reference"))
	if err != nil {
		return storeFailure(err)
	}
	return tools.OK(map[string]any{"flights": upcoming(recs, a.deps.now())})
}

func (a *airline) profileByFrequentFlyer(ctx context.Context, args tools.Arguments) tools.Result {
	ffn := strings.ToUpper(strings.ReplaceAll(args.String("frequent_flyer_number"), " ", ""))
	recs, err := a.flights.Query(ctx, "frequentFlyerNumber", ffn)
	if err != nil {
		return storeFailure(err)
	}
	if len(recs) == 0 {
		return storeFailure(fmt.Errorf("%w: frequent flyer number %s", store.ErrNotFound, ffn))
	}
	return tools.OK(map[string]any{"flights": upcoming(recs, a.deps.now())})
}

func (a *airline) profileByCustomerID(ctx context.Context, args tools.Arguments) tools.Result {
	id := strings.NewReplacer(" ", "", "-", "", ".", "").Replace(args.String("customer_id"))
	recs, err := a.flights.Query(ctx, "customerId", id)
	if err != nil {
		return storeFailure(err)
	}
	if len(recs) == 0 {
		return storeFailure(fmt.Errorf("%w: customer id %s", store.ErrNotFound, id))
	}
	return tools.OK(map[string]any{"flights": upcoming(recs, a.deps.now())})
}

func (a *airline) requestSpecialMeal(ctx context.Context, args tools.Arguments) tools.Result {
	recs, ref, err := a.byReference(ctx, args.String("booking_reference"))
	if err != nil {
		return storeFailure(err)
	}

	rec := recs[0]
	dep, ok := departure(rec)
	if !ok {
		return tools.Failf("departure time unavailable for booking %s", ref)
	}
	if dep.Sub(a.deps.now().UTC()) < mealCutoff {
		return tools.Failf("meal requests must be made at least 24 hours before departure, please contact support")
	}

	rec["mealSelected"] = args.String("meal_type")
	if err := a.flights.Put(ctx, rec); err != nil {
		return storeFailure(err)
	}
	return tools.OK(rec)
}

func (a *airline) createSupportTicket(ctx context.Context, args tools.Arguments) tools.Result {
	recs, _, err := a.byReference(ctx, args.String("booking_reference"))
	if err != nil {
		return storeFailure(err)
	}

	ticket := map[string]any{
		"id":            fmt.Sprintf("%06d", 100000+rand.IntN(900000)),
		"timestamp":     a.deps.now().Format(time.RFC3339),
		"issue_summary": args.String("issue_summary"),
		"status":        "open",
	}

	rec := recs[0]
	existing, _ := rec["support_tickets"].([]any)
	rec["support_tickets"] = append(existing, ticket)

	if err := a.flights.Put(ctx, rec); err != nil {
		return storeFailure(err)
	}
	return tools.OK(map[string]any{
		"message": "Support ticket created",
		"ticket":  ticket,
	})
}

// departure parses the departure date and time of a flight record as UTC.
func departure(rec store.Record) (time.Time, bool) {
	date, clock := rec.String("departureDate"), rec.String("departureTime")
	if date == "" || clock == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(departureLayout, date+" "+clock)
	return t, err == nil
}

// upcoming keeps flights departing after now, earliest first. Records with
// unparseable departures are dropped.
func upcoming(recs []store.Record, now time.Time) []store.Record {
	type flight struct {
		rec store.Record
		at  time.Time
	}

	var fs []flight
	for _, rec := range recs {
		if at, ok := departure(rec); ok && at.After(now) {
			fs = append(fs, flight{rec, at})
		}
	}
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].at.Before(fs[j].at) })

	out := make([]store.Record, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.rec)
	}
	return out
}
