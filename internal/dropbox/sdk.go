package dropbox

import (
	"errors"
	"io"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
)

// sdkAPI adapts the unofficial Dropbox SDK to the api seam. All SDK types
// stay inside this file.
type sdkAPI struct {
	files files.Client
	users users.Client
}

func newSDK(token string) sdkAPI {
	cfg := dropbox.Config{Token: token, LogLevel: dropbox.LogOff}
	return sdkAPI{
		files: files.New(cfg),
		users: users.New(cfg),
	}
}

func writeMode(overwrite bool) *files.WriteMode {
	tag := files.WriteModeAdd
	if overwrite {
		tag = files.WriteModeOverwrite
	}
	return &files.WriteMode{Tagged: dropbox.Tagged{Tag: tag}}
}

func (a sdkAPI) upload(path string, overwrite bool, content io.Reader) error {
	arg := files.NewUploadArg(path)
	arg.Mode = writeMode(overwrite)
	_, err := a.files.Upload(arg, content)
	return err
}

func (a sdkAPI) sessionStart(content io.Reader) (string, error) {
	res, err := a.files.UploadSessionStart(files.NewUploadSessionStartArg(), content)
	if err != nil {
		return "", err
	}
	return res.SessionId, nil
}

func (a sdkAPI) sessionAppend(sessionID string, offset uint64, content io.Reader) error {
	cursor := files.NewUploadSessionCursor(sessionID, offset)
	return a.files.UploadSessionAppendV2(files.NewUploadSessionAppendArg(cursor), content)
}

func (a sdkAPI) sessionFinish(sessionID string, offset uint64, path string, overwrite bool, content io.Reader) error {
	cursor := files.NewUploadSessionCursor(sessionID, offset)
	commit := files.NewCommitInfo(path)
	commit.Mode = writeMode(overwrite)
	_, err := a.files.UploadSessionFinish(files.NewUploadSessionFinishArg(cursor, commit), content)
	return err
}

func (a sdkAPI) createFolder(path string) error {
	_, err := a.files.CreateFolderV2(files.NewCreateFolderArg(path))
	if err == nil {
		return nil
	}
	var apiErr files.CreateFolderV2APIError
	if errors.As(err, &apiErr) && apiErr.EndpointError != nil &&
		apiErr.EndpointError.Path != nil &&
		apiErr.EndpointError.Path.Tag == files.WriteErrorConflict {
		return errFolderExists
	}
	return err
}

func (a sdkAPI) metadataExists(path string) (bool, error) {
	_, err := a.files.GetMetadata(files.NewGetMetadataArg(path))
	if err == nil {
		return true, nil
	}
	var apiErr files.GetMetadataAPIError
	if errors.As(err, &apiErr) {
		return false, nil
	}
	return false, err
}

func (a sdkAPI) currentAccount() error {
	_, err := a.users.GetCurrentAccount()
	return err
}
