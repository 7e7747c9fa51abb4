// omoplink links free-text clinical mentions to OMOP vocabulary
// concepts and scores predicted links against gold annotations.
package main

import "github.com/medtext/omoplink/cmd"

func main() {
	cmd.Execute()
}
