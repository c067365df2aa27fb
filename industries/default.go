package industries

import (
	"context"
	"errors"
	"strings"

	"github.com/tailored-agentic-units/callcenter/knowledge"
	"github.com/tailored-agentic-units/callcenter/store"
	"github.com/tailored-agentic-units/callcenter/tools"
)

func defaultTools(deps Deps) ([]tool, error) {
	customers, err := table(deps, store.TableCustomers)
	if err != nil {
		return nil, err
	}

	kb := deps.Knowledge
	if kb == nil {
		kb = knowledge.Default()
	}

	phone := tools.Parameter{
		Name:        "phone_number",
		Type:        tools.TypeString,
		Description: "the customer's phone number",
		Required:    true,
	}

	return []tool{
		{
			def: tools.Definition{
				Name:        "customerLookup",
				Description: "Look up a customer record by phone number.",
				Parameters:  []tools.Parameter{phone},
			},
			handler: func(ctx context.Context, args tools.Arguments) tools.Result {
				rec, err := findByPhone(ctx, customers, args.String("phone_number"))
				if err != nil {
					return storeFailure(err)
				}
				return tools.OK(rec)
			},
		},
		{
			def: tools.Definition{
				Name:        "userProfileSearch",
				Description: "Search for a user's account and phone plan information by phone number.",
				Parameters:  []tools.Parameter{phone},
			},
			handler: func(ctx context.Context, args tools.Arguments) tools.Result {
				rec, err := findByPhone(ctx, customers, args.String("phone_number"))
				if err != nil {
					return storeFailure(err)
				}

				profile := map[string]any{"account": rec}
				if plan := rec.String("plan"); plan != "" {
					if hits, err := kb.Search(plan+" plan", 1); err == nil {
						profile["plan_details"] = hits[0].Content
					}
				}
				return tools.OK(profile)
			},
		},
		{
			def: tools.Definition{
				Name:        "lookup",
				Description: "Runs query against a knowledge base to retrieve information.",
				Parameters: []tools.Parameter{
					{Name: "query", Type: tools.TypeString, Description: "the query to search", Required: true},
				},
			},
			handler: func(_ context.Context, args tools.Arguments) tools.Result {
				hits, err := kb.Search(args.String("query"), 3)
				if err != nil {
					return tools.Fail(err)
				}
				return tools.OK(map[string]any{"results": hits})
			},
		},
	}, nil
}

// findByPhone tries the number as given and, when it has no country prefix,
// with a leading "+". Phone numbers often arrive from speech without it.
func findByPhone(ctx context.Context, s store.Store, phone string) (store.Record, error) {
	phone = strings.ReplaceAll(phone, " ", "")
	if phone == "" {
		return nil, store.ErrNotFound
	}

	rec, err := s.Get(ctx, store.Key{Partition: phone})
	if errors.Is(err, store.ErrNotFound) && !strings.HasPrefix(phone, "+") {
		return s.Get(ctx, store.Key{Partition: "+" + phone})
	}
	return rec, err
}
