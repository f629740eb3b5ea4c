package shell

import (
	"admin-dashboard/internal/models"
	"admin-dashboard/internal/resource"
)

// Dashboard returns a constructor for the standard two-tab shell: users
// first, then products. opts apply to both managers.
func Dashboard(users resource.Client[models.User], products resource.Client[models.Product], opts ...resource.Option) func() *Shell {
	with := func(n resource.Notifier) []resource.Option {
		all := make([]resource.Option, 0, len(opts)+1)
		all = append(all, opts...)
		return append(all, resource.WithNotifier(n))
	}
	return func() *Shell {
		return New(
			TabSpec{
				Tab:   TabUsers,
				Label: models.UserSchema.Title,
				Factory: func(n resource.Notifier) resource.Controller {
					return resource.NewManager[models.User](models.UserSchema, users, with(n)...)
				},
			},
			TabSpec{
				Tab:   TabProducts,
				Label: models.ProductSchema.Title,
				Factory: func(n resource.Notifier) resource.Controller {
					return resource.NewManager[models.Product](models.ProductSchema, products, with(n)...)
				},
			},
		)
	}
}
