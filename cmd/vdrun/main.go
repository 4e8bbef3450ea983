// Command vdrun runs the bundled vector drawable resize tool against files
// in an Android project's res/drawable folders.
package main

func main() {
	Execute()
}
