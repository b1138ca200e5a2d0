package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		// A fresh data dir ships a default "users" auth collection;
		// replace it, credentials are issued by the credential
		// service instead.
		if existing, err := app.FindCollectionByNameOrId("users"); err == nil {
			if err := app.Delete(existing); err != nil {
				return err
			}
		}

		collection := core.NewBaseCollection("users")

		collection.Fields.Add(
			&core.TextField{
				Name:     "username",
				Required: true,
				Max:      64,
			},
			&core.TextField{
				Name:     "password_hash",
				Required: true,
			},
			&core.TextField{
				Name: "display_name",
				Max:  128,
			},
			&core.SelectField{
				Name:      "role",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"user", "admin"},
			},
			&core.TextField{
				Name: "push_token",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		collection.AddIndex("idx_users_username", true, "username", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
