package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "user",
				Required:      true,
				CollectionId:  users.Id,
				CascadeDelete: true,
				MaxSelect:     1,
			},
			&core.RelationField{
				Name:          "event",
				Required:      true,
				CollectionId:  events.Id,
				CascadeDelete: true,
				MaxSelect:     1,
			},
			&core.TextField{
				Name:     "qr_payload",
				Required: true,
			},
			&core.TextField{
				Name: "pdf_url",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
		)

		// The enforcement point of the one-ticket-per-(user,event) invariant.
		collection.AddIndex("idx_tickets_user_event", true, "`user`, `event`", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
