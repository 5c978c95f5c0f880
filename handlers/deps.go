package handlers

import (
	"tontine-backend/directory"
	"tontine-backend/services"
)

var (
	groupService *services.GroupService
	userDir      directory.Directory
)

// Init wires the collaborators the handlers use. Called once from main
// after the database connections are up.
func Init(gs *services.GroupService, dir directory.Directory) {
	groupService = gs
	userDir = dir
}
