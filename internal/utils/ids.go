package utils

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func GenerateNanoIdWithPrefix(prefix string, length int) string {
	id, err := gonanoid.Generate(idAlphabet, length)
	if err != nil {
		// gonanoid only errors on bad alphabet/length inputs
		panic(err)
	}
	return prefix + "_" + id
}
