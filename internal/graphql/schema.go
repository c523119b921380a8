// Package graphql exposes the timezone and user services as a GraphQL API.
package graphql

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/worldclock/apiserver/internal/handlers"
	"github.com/worldclock/apiserver/internal/logger"
	"github.com/worldclock/apiserver/internal/services"
	"github.com/worldclock/apiserver/types"
)

// Services are the use-cases reachable from the schema.
type Services struct {
	Auth      *services.AuthService
	Users     *services.UserService
	Timezones *services.TimezoneService
}

type resolver struct {
	svc Services
	log logger.Logger
}

// NewSchema builds the schema over svc.
func NewSchema(svc Services, log logger.Logger) (graphql.Schema, error) {
	if log == nil {
		log = logger.Nop()
	}
	res := &resolver{svc: svc, log: log}

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"email":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"name":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"role":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"createdAt": &graphql.Field{Type: graphql.String},
			"updatedAt": &graphql.Field{Type: graphql.String},
		},
	})

	timezoneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Timezone",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"ownerId":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"city":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"timezone":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"offset":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"currentTime": &graphql.Field{Type: graphql.String},
			"createdAt":   &graphql.Field{Type: graphql.String},
			"updatedAt":   &graphql.Field{Type: graphql.String},
		},
	})

	authPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthPayload",
		Fields: graphql.Fields{
			"token": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"user":  &graphql.Field{Type: graphql.NewNonNull(userType)},
		},
	})

	pageArgs := graphql.FieldConfigArgument{
		"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
		"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type:    userType,
				Resolve: res.me,
			},
			"timezones": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(timezoneType))),
				Args: graphql.FieldConfigArgument{
					"userId": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: res.timezones,
			},
			"timezone": &graphql.Field{
				Type: timezoneType,
				Args: graphql.FieldConfigArgument{
					"name":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"userId": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: res.timezone,
			},
			"allTimezones": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(timezoneType))),
				Args:    pageArgs,
				Resolve: res.allTimezones,
			},
			"users": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(userType))),
				Args:    pageArgs,
				Resolve: res.users,
			},
			"user": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: res.user,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"register": &graphql.Field{
				Type: authPayloadType,
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"name":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: res.register,
			},
			"login": &graphql.Field{
				Type: authPayloadType,
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: res.login,
			},
			"createTimezone": &graphql.Field{
				Type: timezoneType,
				Args: graphql.FieldConfigArgument{
					"name":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"city":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"country": &graphql.ArgumentConfig{Type: graphql.String},
					"userId":  &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: res.createTimezone,
			},
			"updateTimezone": &graphql.Field{
				Type: timezoneType,
				Args: graphql.FieldConfigArgument{
					"name":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"newName": &graphql.ArgumentConfig{Type: graphql.String},
					"city":    &graphql.ArgumentConfig{Type: graphql.String},
					"country": &graphql.ArgumentConfig{Type: graphql.String},
					"userId":  &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: res.updateTimezone,
			},
			"deleteTimezone": &graphql.Field{
				Type: timezoneType,
				Args: graphql.FieldConfigArgument{
					"name":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"userId": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: res.deleteTimezone,
			},
			"deleteUser": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: res.deleteUser,
			},
			"updateUserRole": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"id":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"role": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: res.updateUserRole,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
}

func (r *resolver) me(p graphql.ResolveParams) (interface{}, error) {
	principal, err := principal(p.Context)
	if err != nil {
		return nil, err
	}
	user, err := r.svc.Users.Get(p.Context, principal, principal.ID)
	if err != nil {
		return nil, r.fail(err)
	}
	return userValue(user), nil
}

func (r *resolver) timezones(p graphql.ResolveParams) (interface{}, error) {
	principal, err := principal(p.Context)
	if err != nil {
		return nil, err
	}
	views, err := r.svc.Timezones.ListForOwner(p.Context, principal, ownerArg(p, principal))
	if err != nil {
		return nil, r.fail(err)
	}
	return timezoneValues(views), nil
}

func (r *resolver) timezone(p graphql.ResolveParams) (interface{}, error) {
	principal, err := principal(p.Context)
	if err != nil {
		return nil, err
	}
	view, err := r.svc.Timezones.GetByName(p.Context, principal, ownerArg(p, principal), stringArg(p, "name"))
	if err != nil {
		return nil, r.fail(err)
	}
	return timezoneValue(view), nil
}

func (r *resolver) allTimezones(p graphql.ResolveParams) (interface{}, error) {
	principal, err := principal(p.Context)
	if err != nil {
		return nil, err
	}
	views, _, err := r.svc.Timezones.ListAll(p.Context, principal, intArg(p, "offset"), intArg(p, "limit"))
	if err != nil {
		return nil, r.fail(err)
	}
	return timezoneValues(views), nil
}

func (r *resolver) users(p graphql.ResolveParams) (interface{}, error) {
	principal, err := principal(p.Context)
	if err != nil {
		return nil, err
	}
	users, _, err := r.svc.Users.List(p.Context, principal, intArg(p, "offset"), intArg(p, "limit"))
	if err != nil {
		return nil, r.fail(err)
	}
	values := make([]map[string]interface{}, 0, len(users))
	for _, user := range users {
		values = append(values, userValue(user))
	}
	return values, nil
}

func (r *resolver) user(p graphql.ResolveParams) (interface{}, error) {
	principal, err := principal(p.Context)
	if err != nil {
		return nil, err
	}
	user, err := r.svc.Users.Get(p.Context, principal, intArg(p, "id"))
	if err != nil {
		return nil, r.fail(err)
	}
	return userValue(user), nil
}

func (r *resolver) register(p graphql.ResolveParams) (interface{}, error) {
	session, err := r.svc.Auth.Register(p.Context, stringArg(p, "email"), stringArg(p, "name"), stringArg(p, "password"))
	if err != nil {
		return nil, r.fail(err)
	}
	return sessionValue(session), nil
}

func (r *resolver) login(p graphql.ResolveParams) (interface{}, error) {
	session, err := r.svc.Auth.Login(p.Context, stringArg(p, "email"), stringArg(p, "password"))
	if err != nil {
		return nil, r.fail(err)
	}
	return sessionValue(session), nil
}

func (r *resolver) createTimezone(p graphql.ResolveParams) (interface{}, error) {
	principal, err := principal(p.Context)
	if err != nil {
		return nil, err
	}
	created, err := r.svc.Timezones.Create(p.Context, principal, ownerArg(p, principal),
		stringArg(p, "name"), stringArg(p, "city"), stringArg(p, "country"))
	if err != nil {
		return nil, r.fail(err)
	}
	return timezoneValue(types.TimezoneView{Timezone: created}), nil
}

func (r *resolver) updateTimezone(p graphql.ResolveParams) (interface{}, error) {
	principal, err := principal(p.Context)
	if err != nil {
		return nil, err
	}
	proposal := types.TimezoneProposal{
		Name:    optionalStringArg(p, "newName"),
		City:    optionalStringArg(p, "city"),
		Country: optionalStringArg(p, "country"),
	}
	updated, err := r.svc.Timezones.UpdateByName(p.Context, principal, ownerArg(p, principal), stringArg(p, "name"), proposal)
	if err != nil {
		return nil, r.fail(err)
	}
	return timezoneValue(types.TimezoneView{Timezone: updated}), nil
}

func (r *resolver) deleteTimezone(p graphql.ResolveParams) (interface{}, error) {
	principal, err := principal(p.Context)
	if err != nil {
		return nil, err
	}
	deleted, err := r.svc.Timezones.DeleteByName(p.Context, principal, ownerArg(p, principal), stringArg(p, "name"))
	if err != nil {
		return nil, r.fail(err)
	}
	return timezoneValue(types.TimezoneView{Timezone: deleted}), nil
}

func (r *resolver) deleteUser(p graphql.ResolveParams) (interface{}, error) {
	principal, err := principal(p.Context)
	if err != nil {
		return nil, err
	}
	user, err := r.svc.Users.Delete(p.Context, principal, intArg(p, "id"))
	if err != nil {
		return nil, r.fail(err)
	}
	return userValue(user), nil
}

func (r *resolver) updateUserRole(p graphql.ResolveParams) (interface{}, error) {
	principal, err := principal(p.Context)
	if err != nil {
		return nil, err
	}
	role, ok := types.ParseRole(stringArg(p, "role"))
	if !ok {
		return nil, errors.New("invalid role")
	}
	user, err := r.svc.Users.UpdateRole(p.Context, principal, intArg(p, "id"), role)
	if err != nil {
		return nil, r.fail(err)
	}
	return userValue(user), nil
}

// fail hides unexpected errors behind a generic message.
func (r *resolver) fail(err error) error {
	if handlers.StatusFor(err) == http.StatusInternalServerError {
		r.log.Error("graphql resolver failed", "error", err)
		return errors.New("internal error")
	}
	return err
}

func principal(ctx context.Context) (types.Principal, error) {
	p, ok := handlers.PrincipalFromContext(ctx)
	if !ok {
		return types.Principal{}, services.ErrUnauthenticated
	}
	return p, nil
}

// ownerArg defaults userId to the principal.
func ownerArg(p graphql.ResolveParams, principal types.Principal) int {
	if id, ok := p.Args["userId"].(int); ok {
		return id
	}
	return principal.ID
}

func stringArg(p graphql.ResolveParams, name string) string {
	value, _ := p.Args[name].(string)
	return value
}

func optionalStringArg(p graphql.ResolveParams, name string) *string {
	value, ok := p.Args[name].(string)
	if !ok {
		return nil
	}
	return &value
}

func intArg(p graphql.ResolveParams, name string) int {
	value, _ := p.Args[name].(int)
	return value
}

func userValue(user types.User) map[string]interface{} {
	return map[string]interface{}{
		"id":        user.ID,
		"email":     user.Email,
		"name":      user.Name,
		"role":      string(user.Role),
		"createdAt": formatTime(user.CreatedAt),
		"updatedAt": formatTime(user.UpdatedAt),
	}
}

func timezoneValue(view types.TimezoneView) map[string]interface{} {
	value := map[string]interface{}{
		"id":        view.ID,
		"ownerId":   view.OwnerID,
		"name":      view.Name,
		"city":      view.City,
		"timezone":  view.Timezone.Timezone,
		"offset":    view.Offset,
		"createdAt": formatTime(view.CreatedAt),
		"updatedAt": formatTime(view.UpdatedAt),
	}
	if view.CurrentTime != "" {
		value["currentTime"] = view.CurrentTime
	}
	return value
}

func timezoneValues(views []types.TimezoneView) []map[string]interface{} {
	values := make([]map[string]interface{}, 0, len(views))
	for _, view := range views {
		values = append(values, timezoneValue(view))
	}
	return values
}

func sessionValue(session services.Session) map[string]interface{} {
	return map[string]interface{}{
		"token": session.Token,
		"user":  userValue(session.User),
	}
}

func formatTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
