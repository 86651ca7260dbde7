package utils

import (
	"os"

	"github.com/Trinoooo/eventqueue/consts"
)

func Env() string {
	return os.Getenv(consts.Env)
}

func IsTest() bool {
	return Env() == "test"
}

func GetValueOnEnv(prod, test interface{}) interface{} {
	if IsTest() {
		return test
	}
	return prod
}
