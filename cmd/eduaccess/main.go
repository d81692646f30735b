// Package main 启动应用程序
package main

import (
	"fmt"
	"os"

	"github.com/yeisme/eduaccess/pkg/cmd"
)

//	@title			EduAccess API
//	@version		1.0
//	@description	EduAccess 将上传的课程资料处理为摘要、简化文本与音频，并维护资料登记的一致性。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
