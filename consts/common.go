package consts

import (
	"fmt"
	"github.com/mitchellh/go-homedir"
)

const (
	AppName = "eventqueue"
)

func init() {
	home, _ := homedir.Dir()
	BaseDir = fmt.Sprintf("%s/%s", home, AppName)
	DefaultConfigPath = BaseDir
}

var (
	BaseDir           string
	DefaultConfigPath string
)
