package main

import "github.com/yungbote/koreafit-backend/cmd/ideactl/cmd"

func main() {
	cmd.Execute()
}
