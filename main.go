package main

import "sourcemapx.safepic.fr/tsmap"

func main() {
	tsmap.Execute()
}
