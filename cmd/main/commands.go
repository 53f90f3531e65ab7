package main

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/api"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/controller"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/db"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/mutation"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/push"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/realtime"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in and remember the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, EnvVars: []string{"KANBAN_EMAIL"}},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"KANBAN_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			form := validation.Login{Email: c.String("email"), Password: c.String("password")}
			if err := validation.Validate(form); err != nil {
				return err
			}

			return authenticate(c, func(client *api.Client) (api.AuthResult, error) {
				return client.Login(c.Context, api.Credentials{Email: form.Email, Password: form.Password})
			})
		},
	}
}

func signupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "phone"},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"KANBAN_PASSWORD"}},
			&cli.StringFlag{Name: "confirm-password", Required: true},
		},
		Action: func(c *cli.Context) error {
			form := validation.Signup{
				Name:            c.String("name"),
				Email:           c.String("email"),
				Phone:           c.String("phone"),
				Password:        c.String("password"),
				ConfirmPassword: c.String("confirm-password"),
			}
			if err := validation.Validate(form); err != nil {
				return err
			}

			return authenticate(c, func(client *api.Client) (api.AuthResult, error) {
				return client.Signup(c.Context, api.Signup{
					Name:     form.Name,
					Email:    form.Email,
					Phone:    form.Phone,
					Password: form.Password,
				})
			})
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "forget the saved session",
		Action: func(c *cli.Context) error {
			cfg, closeLog, err := setup(c)
			if err != nil {
				return err
			}
			defer closeLog()

			database, err := db.NewDatabase(c.Context, cfg.DBFilename)
			if err != nil {
				return err
			}
			defer database.Close()

			return database.ClearSession(c.Context)
		},
	}
}

func authenticate(c *cli.Context, call func(*api.Client) (api.AuthResult, error)) error {
	cfg, closeLog, err := setup(c)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := db.NewDatabase(c.Context, cfg.DBFilename)
	if err != nil {
		return err
	}
	defer database.Close()

	result, err := call(api.NewClient(cfg.APIURL))
	if err != nil {
		return err
	}

	if err := database.SaveSession(c.Context, db.Session{Token: result.Token, User: result.User}); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "signed in as %s\n", result.User.Name)

	return nil
}

func run(c *cli.Context) error {
	ctx := c.Context

	cfg, closeLog, err := setup(c)
	if err != nil {
		return err
	}
	defer closeLog()

	log.Info().Msg("starting application...")

	database, err := db.NewDatabase(ctx, cfg.DBFilename)
	if err != nil {
		return err
	}
	defer database.Close()

	session, err := database.LoadSession(ctx)
	if errors.Is(err, db.ErrNoSession) || errors.Is(err, db.ErrSessionExpired) {
		return fmt.Errorf("%w: sign in with '%s login'", err, c.App.Name)
	}

	if err != nil {
		return err
	}

	client := api.NewClient(cfg.APIURL, api.WithToken(session.Token))

	entities, err := cache.New(ctx, client, cache.WithSize(cfg.CacheSize), cache.WithCopier(model.CloneValue))
	if err != nil {
		return err
	}
	defer entities.Close()

	// the push callbacks can fire before the controller exists
	var live atomic.Pointer[controller.Controller]

	settings := push.DefaultSettings()
	settings.ReconnectAttempts = cfg.ReconnectAttempts
	settings.ReconnectDelay = cfg.ReconnectDelay
	settings.OnConnect = func() {
		if ctrl := live.Load(); ctrl != nil {
			ctrl.SetStatus("[green]live")
		}
	}
	settings.OnDisconnect = func(err error) {
		ctrl := live.Load()
		if ctrl == nil {
			return
		}

		if errors.Is(err, push.ErrReconnectExhausted) {
			ctrl.SetStatus("[red]offline:[white] press r to refresh")
		} else {
			ctrl.SetStatus("[yellow]reconnecting...")
		}
	}

	router := push.NewRouter()
	conn := push.NewConn(cfg.WSURL, session.Token, router, settings)

	if err := conn.Connect(ctx); err != nil {
		// the board still works over REST; it just will not see other users' edits
		log.Warn().Err(err).Msg("push channel unavailable")
	}
	defer conn.Close()

	boardSession := realtime.NewSession(entities, router, conn)
	defer boardSession.Close()

	var ctrl *controller.Controller

	engine := mutation.New(entities, client, session.User,
		mutation.WithContext(ctx),
		mutation.OnError(func(m *mutation.Mutation, err error) {
			ctrl.MutationFailed(m, err)
		}),
		mutation.OnUnauthorized(func(err error) {
			log.Warn().Err(err).Msg("session rejected by the server, signing out")

			if err := database.ClearSession(ctx); err != nil {
				log.Err(err).Msg("error clearing session")
			}

			ctrl.Stop()
		}),
	)

	ctrl = controller.NewController(ctx, entities, engine, boardSession)
	live.Store(ctrl)

	err = ctrl.Go()

	engine.Wait()

	log.Info().Msg("terminating application")

	return err
}
