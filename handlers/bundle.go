package handlers

// HandlerBundle groups the endpoint handlers mounted by the router.
type HandlerBundle struct {
	User   *UserHandler
	Device *DeviceHandler
	Chat   *ChatHandler
	Admin  *AdminHandler
}
