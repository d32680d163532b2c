package backup

import "pxocore/internal/domain/backup"

type createOutput struct {
	Body backup.Info
}

type listOutput struct {
	Body []backup.Info
}

type restoreInput struct {
	ID string `path:"id" doc:"Идентификатор резервной копии"`
}

type restoreOutput struct {
	Body backup.RestoreResult
}
